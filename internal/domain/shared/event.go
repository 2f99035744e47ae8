package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that occurred in the domain
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
}

// SchoolScopedEvent is implemented by events that belong to one school's
// academic year. Cache invalidation keys off it.
type SchoolScopedEvent interface {
	DomainEvent
	SchoolCode() string
	AcademicYear() int
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	AggID     uuid.UUID `json:"aggregate_id"`
	AggType   string    `json:"aggregate_type"`
	Code      string    `json:"school_code,omitempty"`
	Year      int       `json:"academic_year,omitempty"`
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type of the event
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the ID of the aggregate that produced this event
func (e *BaseDomainEvent) AggregateID() uuid.UUID {
	return e.AggID
}

// AggregateType returns the type of the aggregate
func (e *BaseDomainEvent) AggregateType() string {
	return e.AggType
}

// SchoolCode returns the school code the event belongs to
func (e *BaseDomainEvent) SchoolCode() string {
	return e.Code
}

// AcademicYear returns the academic year the event belongs to
func (e *BaseDomainEvent) AcademicYear() int {
	return e.Year
}

// NewBaseDomainEvent creates a new base domain event scoped to a school year
func NewBaseDomainEvent(eventType, aggType string, aggID uuid.UUID, schoolCode string, academicYear int) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: time.Now(),
		AggID:     aggID,
		AggType:   aggType,
		Code:      schoolCode,
		Year:      academicYear,
	}
}
