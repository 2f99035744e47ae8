package accountability

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/schoolgrants/backend/internal/domain/accountability"
	"github.com/schoolgrants/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReceiptService_StorageDisabled(t *testing.T) {
	svc := NewReceiptService(new(MockRepository), nil, nil)
	ctx := context.Background()

	_, err := svc.RequestUpload(ctx, uuid.New(), uuid.New(), ReceiptUploadRequest{TrancheName: "Tranche 1", ContentType: "image/png"})
	assert.ErrorIs(t, err, shared.ErrStorageUnavailable)
	_, err = svc.DownloadURL(ctx, uuid.New(), uuid.New(), "Tranche 1")
	assert.ErrorIs(t, err, shared.ErrStorageUnavailable)
}

func TestReceiptService_RequestUpload(t *testing.T) {
	repo, store := new(MockRepository), new(MockStorage)
	svc := NewReceiptService(repo, store, nil)
	ctx := context.Background()
	ref := testRef()
	entryID := uuid.New()
	key := "receipts/CES-0456/2024/" + ref.ID.String() + "/" + entryID.String() + ".pdf"
	expires := fixedNow.Add(15 * time.Minute)

	repo.On("RecordRef", ctx, ref.ID).Return(ref, nil)
	repo.On("SetEntryReceipt", ctx, ref.ID, "Tranche 1", entryID, key).Return(nil)
	store.On("GenerateUploadURL", ctx, key, "application/pdf", time.Duration(0)).Return("https://s3/put", expires, nil)

	resp, err := svc.RequestUpload(ctx, ref.ID, entryID, ReceiptUploadRequest{TrancheName: "Tranche 1", ContentType: "Application/PDF"})
	require.NoError(t, err)
	assert.Equal(t, key, resp.Key)
	assert.Equal(t, http.MethodPut, resp.Method)
	assert.Equal(t, "https://s3/put", resp.URL)
	assert.Equal(t, expires, resp.ExpiresAt)
	repo.AssertExpectations(t)
}

func TestReceiptService_RequestUploadRejectsContentType(t *testing.T) {
	repo, store := new(MockRepository), new(MockStorage)
	svc := NewReceiptService(repo, store, nil)

	_, err := svc.RequestUpload(context.Background(), uuid.New(), uuid.New(), ReceiptUploadRequest{TrancheName: "Tranche 1", ContentType: "text/html"})
	assert.True(t, shared.HasCode(err, shared.CodeValidation))
	repo.AssertNotCalled(t, "RecordRef", mock.Anything, mock.Anything)
}

func TestReceiptService_RequestUploadEntryMissing(t *testing.T) {
	repo, store := new(MockRepository), new(MockStorage)
	svc := NewReceiptService(repo, store, nil)
	ctx := context.Background()
	ref := testRef()
	entryID := uuid.New()

	repo.On("RecordRef", ctx, ref.ID).Return(ref, nil)
	repo.On("SetEntryReceipt", ctx, ref.ID, "Tranche 1", entryID, mock.Anything).Return(shared.ErrEntryNotFound)

	_, err := svc.RequestUpload(ctx, ref.ID, entryID, ReceiptUploadRequest{TrancheName: "Tranche 1", ContentType: "image/jpeg"})
	assert.ErrorIs(t, err, shared.ErrEntryNotFound)
	store.AssertNotCalled(t, "GenerateUploadURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReceiptService_DownloadURL(t *testing.T) {
	repo, store := new(MockRepository), new(MockStorage)
	svc := NewReceiptService(repo, store, nil)
	ctx := context.Background()
	id, withReceipt, without := uuid.New(), uuid.New(), uuid.New()

	repo.On("FindAccountingEntry", ctx, id, "Tranche 1", withReceipt).
		Return(&accountability.AccountingEntry{ID: withReceipt, ReceiptKey: "receipts/k.png"}, nil)
	repo.On("FindAccountingEntry", ctx, id, "Tranche 1", without).
		Return(&accountability.AccountingEntry{ID: without}, nil)
	store.On("GenerateDownloadURL", ctx, "receipts/k.png", time.Duration(0)).Return("https://s3/get", fixedNow, nil)

	resp, err := svc.DownloadURL(ctx, id, withReceipt, "tranche 1")
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, resp.Method)
	assert.Equal(t, "https://s3/get", resp.URL)

	_, err = svc.DownloadURL(ctx, id, without, "Tranche 1")
	assert.True(t, shared.HasCode(err, shared.CodeNotFound))
}

func TestReceiptService_PresignFailure(t *testing.T) {
	repo, store := new(MockRepository), new(MockStorage)
	svc := NewReceiptService(repo, store, nil)
	ctx := context.Background()
	id, entryID := uuid.New(), uuid.New()

	repo.On("FindAccountingEntry", ctx, id, "Tranche 1", entryID).
		Return(&accountability.AccountingEntry{ID: entryID, ReceiptKey: "k"}, nil)
	store.On("GenerateDownloadURL", ctx, "k", time.Duration(0)).Return("", time.Time{}, errors.New("signer broken"))

	_, err := svc.DownloadURL(ctx, id, entryID, "Tranche 1")
	assert.ErrorIs(t, err, shared.ErrStorageUnavailable)
}
