package accountability

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ReceiptStorage presigns object URLs. storage.S3ReceiptStorage satisfies it.
type ReceiptStorage interface {
	GenerateUploadURL(ctx context.Context, key, contentType string, expiresIn time.Duration) (string, time.Time, error)
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error)
}

var receiptExtensions = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/heic":      ".heic",
}

// ReceiptService attaches scanned receipts to accounting entries
type ReceiptService struct {
	repo    accountability.Repository
	storage ReceiptStorage
	logger  *zap.Logger
}

// NewReceiptService creates a new ReceiptService. storage may be nil when
// object storage is disabled; every call then fails with
// STORAGE_UNAVAILABLE.
func NewReceiptService(repo accountability.Repository, storage ReceiptStorage, logger *zap.Logger) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{repo: repo, storage: storage, logger: logger}
}

// ReceiptKey builds the object key of an entry's receipt
func ReceiptKey(ref accountability.RecordRef, entryID uuid.UUID, ext string) string {
	return fmt.Sprintf("receipts/%s/%d/%s/%s%s", ref.Code, ref.AcademicYear, ref.ID, entryID, ext)
}

// RequestUpload stores a receipt key on the entry and returns a presigned
// PUT URL for it. Uploading again replaces the previous receipt.
func (s *ReceiptService) RequestUpload(ctx context.Context, id, entryID uuid.UUID, req ReceiptUploadRequest) (*ReceiptURLResponse, error) {
	if s.storage == nil {
		return nil, shared.ErrStorageUnavailable
	}
	name, err := accountability.RequireTrancheName(req.TrancheName)
	if err != nil {
		return nil, err
	}
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	ext, ok := receiptExtensions[contentType]
	if !ok {
		return nil, shared.NewDomainError(shared.CodeValidation, fmt.Sprintf("unsupported receipt content type %q", req.ContentType))
	}

	ref, err := s.repo.RecordRef(ctx, id)
	if err != nil {
		return nil, err
	}
	key := ReceiptKey(ref, entryID, ext)
	if err := s.repo.SetEntryReceipt(ctx, id, name, entryID, key); err != nil {
		return nil, err
	}

	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, contentType, 0)
	if err != nil {
		s.logger.Error("Failed to presign receipt upload", zap.String("key", key), zap.Error(err))
		return nil, shared.ErrStorageUnavailable
	}
	return &ReceiptURLResponse{EntryID: entryID, Key: key, URL: url, Method: http.MethodPut, ExpiresAt: expiresAt}, nil
}

// DownloadURL returns a presigned GET URL for an entry's receipt
func (s *ReceiptService) DownloadURL(ctx context.Context, id, entryID uuid.UUID, trancheName string) (*ReceiptURLResponse, error) {
	if s.storage == nil {
		return nil, shared.ErrStorageUnavailable
	}
	name, err := accountability.RequireTrancheName(trancheName)
	if err != nil {
		return nil, err
	}
	entry, err := s.repo.FindAccountingEntry(ctx, id, name, entryID)
	if err != nil {
		return nil, err
	}
	if entry.ReceiptKey == "" {
		return nil, shared.NewDomainError(shared.CodeNotFound, "entry has no receipt")
	}

	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, entry.ReceiptKey, 0)
	if err != nil {
		s.logger.Error("Failed to presign receipt download", zap.String("key", entry.ReceiptKey), zap.Error(err))
		return nil, shared.ErrStorageUnavailable
	}
	return &ReceiptURLResponse{EntryID: entryID, Key: entry.ReceiptKey, URL: url, Method: http.MethodGet, ExpiresAt: expiresAt}, nil
}
