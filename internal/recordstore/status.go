package recordstore

import (
	"context"

	"github.com/noah-isme/sma-enrollment/internal/models"
)

// UpdateStatus sets the status of records[index] and persists the collection.
// An out of range index returns ErrRecordNotFound without writing anything.
func UpdateStatus(ctx context.Context, store Store, records []models.StudentRecord, index int, status models.StudentStatus) error {
	if index < 0 || index >= len(records) {
		return ErrRecordNotFound
	}
	records[index].Status = status
	return store.SaveAll(ctx, records)
}

// Summarize counts records per effective status.
func Summarize(records []models.StudentRecord) models.StudentSummary {
	summary := models.StudentSummary{Total: len(records)}
	for _, r := range records {
		switch r.EffectiveStatus() {
		case models.StatusPending:
			summary.Pending++
		case models.StatusApproved:
			summary.Approved++
		case models.StatusDeclined:
			summary.Declined++
		}
	}
	return summary
}
