package incident

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShortID(t *testing.T) {
	assert.Equal(t, "c8a9f", ShortID("6d3e1f42-9b7a-4c2d-8e1f-abcde12c8a9f"))
	assert.Equal(t, "abc", ShortID("abc"))
	assert.Equal(t, "abcde", ShortID("abcde"))
	assert.Equal(t, "", ShortID(""))
}

func TestStatusIsValid(t *testing.T) {
	assert.True(t, StatusPending.IsValid())
	assert.True(t, StatusOngoing.IsValid())
	assert.True(t, StatusCompleted.IsValid())
	assert.False(t, Status("pending").IsValid(), "statuses are case sensitive")
	assert.False(t, Status("Closed").IsValid())
}

func TestCategoryIsValid(t *testing.T) {
	for _, c := range []Category{
		CategoryNetwork, CategoryHardware, CategorySoftware,
		CategoryBilling, CategoryServiceOutage, CategoryOther,
	} {
		assert.True(t, c.IsValid(), "category %q", c)
	}

	assert.False(t, Category("Gardening").IsValid())
	assert.False(t, Category("").IsValid())
}

func TestNewFromCreateRequest(t *testing.T) {
	occurred := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	inc := NewFromCreateRequest(CreateRequest{
		Title:         "Router down",
		Description:   "Office router not responding",
		Category:      "Network",
		ReporterName:  "Jane Doe",
		ReporterEmail: "jane@example.com",
		ContactNumber: "0771234567",
		Address:       "12 Main St",
		OccurredAt:    occurred,
	})

	assert.NotEmpty(t, inc.ID)
	assert.Equal(t, ShortID(inc.ID), inc.ShortID)
	assert.Len(t, inc.ShortID, 5)
	assert.Equal(t, StatusPending, inc.Status)
	assert.Equal(t, NoTeamAssigned, inc.Team)
	assert.Equal(t, CategoryNetwork, inc.Category)
	assert.Equal(t, occurred, inc.OccurredAt)
	assert.False(t, inc.CreatedAt.IsZero())
	assert.Equal(t, inc.CreatedAt, inc.UpdatedAt)
}

func TestNewFromCreateRequest_UniqueIDs(t *testing.T) {
	req := CreateRequest{Title: "x", Description: "y", Category: "Other"}

	a := NewFromCreateRequest(req)
	b := NewFromCreateRequest(req)

	assert.NotEqual(t, a.ID, b.ID)
}
