package incident

import (
	"time"

	"github.com/google/uuid"
)

// NewFromCreateRequest builds a fresh incident in its initial state:
// Pending, unassigned, short id derived from the record id.
func NewFromCreateRequest(req CreateRequest) Incident {
	now := time.Now().UTC()
	id := uuid.NewString()

	return Incident{
		ID:            id,
		ShortID:       ShortID(id),
		Title:         req.Title,
		Description:   req.Description,
		Category:      Category(req.Category),
		Status:        StatusPending,
		Team:          NoTeamAssigned,
		ReporterName:  req.ReporterName,
		ReporterEmail: req.ReporterEmail,
		ContactNumber: req.ContactNumber,
		Address:       req.Address,
		OccurredAt:    req.OccurredAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// ShortID is the human-quotable handle: the last five characters of
// the record id.
func ShortID(id string) string {
	if len(id) <= 5 {
		return id
	}

	return id[len(id)-5:]
}
