package subject

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/passport-office-scheduling/internal/apperr"
)

// Status is the upstream processing state of a passport application.
type Status string

const (
	StatusSubmitted         Status = "submitted"
	StatusUnderReview       Status = "under_review"
	StatusDocumentsRequired Status = "documents_required"
	StatusProcessing        Status = "processing"
	StatusQualityCheck      Status = "quality_check"
	StatusReadyForPickup    Status = "ready_for_pickup"
	StatusCollected         Status = "collected"
	StatusExpired           Status = "expired"
	StatusRejected          Status = "rejected"
)

// AllStatuses lists every upstream status in processing order.
var AllStatuses = []Status{
	StatusSubmitted, StatusUnderReview, StatusDocumentsRequired, StatusProcessing,
	StatusQualityCheck, StatusReadyForPickup, StatusCollected, StatusExpired, StatusRejected,
}

var (
	ErrSubjectNotFound = apperr.NotFound("subject")
	ErrNotCollectable  = apperr.InvalidState("subject_not_ready", "application is not ready for pickup")
)

// Subject is a passport application owned by the upstream system.
type Subject struct {
	ID              uuid.UUID  `json:"id"`
	ReferenceNumber string     `json:"reference_number"`
	ApplicantName   string     `json:"applicant_name"`
	Phone           *string    `json:"phone,omitempty"`
	Status          Status     `json:"status"`
	CollectedAt     *time.Time `json:"collected_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
