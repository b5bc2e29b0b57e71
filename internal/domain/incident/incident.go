package incident

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("incident not found")

type Status string

const (
	StatusPending   Status = "Pending"
	StatusOngoing   Status = "Ongoing"
	StatusCompleted Status = "Completed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusOngoing, StatusCompleted:
		return true
	default:
		return false
	}
}

// Categories an incident can be filed under. The set mirrors what the
// report form offers.
type Category string

const (
	CategoryNetwork        Category = "Network"
	CategoryHardware       Category = "Hardware"
	CategorySoftware       Category = "Software"
	CategoryBilling        Category = "Billing"
	CategoryServiceOutage  Category = "Service Outage"
	CategoryOther          Category = "Other"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryNetwork, CategoryHardware, CategorySoftware,
		CategoryBilling, CategoryServiceOutage, CategoryOther:
		return true
	default:
		return false
	}
}

const NoTeamAssigned = "No team assigned"

type Incident struct {
	ID          string   `json:"id"`
	ShortID     string   `json:"shortId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Status      Status   `json:"status"`
	Team        string   `json:"team"`

	// Reporter contact details as submitted on the form.
	ReporterName  string `json:"customerName"`
	ReporterEmail string `json:"email"`
	ContactNumber string `json:"contactNumber"`
	Address       string `json:"address"`

	OccurredAt time.Time `json:"date"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type CreateRequest struct {
	Title         string    `json:"incidentTitle" binding:"required"`
	Description   string    `json:"description" binding:"required"`
	Category      string    `json:"category" binding:"required"`
	ReporterName  string    `json:"customerName" binding:"required"`
	ReporterEmail string    `json:"email" binding:"required,email"`
	ContactNumber string    `json:"contactNumber" binding:"required"`
	Address       string    `json:"address" binding:"required"`
	OccurredAt    time.Time `json:"date" binding:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type UpdateAssignmentRequest struct {
	Status string `json:"status" binding:"required"`
	Team   string `json:"team" binding:"required"`
}

// ListFilter narrows a listing. Nil fields are ignored.
type ListFilter struct {
	ReporterEmail *string
	Category      *Category
	Status        *Status
	Search        *string // matches title, description or short id
	Limit         int
	Offset        int
}
