package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeEntry() *DRMEntry {
	return &DRMEntry{
		OfficeID:    1,
		Month:       3,
		Year:        2026,
		Title:       "March revenue reconciliation",
		Description: "Counter revenue for March",
		Category:    DRMCategoryRevenue,
		Amount:      125000,
		Currency:    "INR",
		Status:      DRMStatusDraft,
		Workflow:    DRMWorkflow{CreatedBy: 10},
	}
}

func TestDRMStatusCanTransitionTo(t *testing.T) {
	assert.True(t, DRMStatusDraft.CanTransitionTo(DRMStatusSubmitted))
	assert.True(t, DRMStatusSubmitted.CanTransitionTo(DRMStatusScrutinized))
	assert.True(t, DRMStatusSubmitted.CanTransitionTo(DRMStatusRejected))
	assert.True(t, DRMStatusScrutinized.CanTransitionTo(DRMStatusFinalized))
	assert.True(t, DRMStatusScrutinized.CanTransitionTo(DRMStatusRejected))
	assert.True(t, DRMStatusRejected.CanTransitionTo(DRMStatusSubmitted))

	assert.False(t, DRMStatusDraft.CanTransitionTo(DRMStatusFinalized))
	assert.False(t, DRMStatusDraft.CanTransitionTo(DRMStatusScrutinized))
	assert.False(t, DRMStatusSubmitted.CanTransitionTo(DRMStatusFinalized))
	assert.False(t, DRMStatusFinalized.CanTransitionTo(DRMStatusSubmitted))
	assert.False(t, DRMStatusFinalized.CanTransitionTo(DRMStatusRejected))
}

func TestDRMEntryFullWorkflow(t *testing.T) {
	entry := completeEntry()
	now := time.Now()

	require.NoError(t, entry.Submit(10, now))
	assert.Equal(t, DRMStatusSubmitted, entry.Status)
	require.NotNil(t, entry.Workflow.SubmittedBy)
	assert.Equal(t, int64(10), *entry.Workflow.SubmittedBy)

	require.NoError(t, entry.Scrutinize(20, now))
	assert.Equal(t, DRMStatusScrutinized, entry.Status)

	require.NoError(t, entry.Finalize(30, now))
	assert.Equal(t, DRMStatusFinalized, entry.Status)

	assert.ErrorIs(t, entry.Submit(10, now), ErrInvalidTransition)
	assert.ErrorIs(t, entry.Reject(20, now, "too late"), ErrInvalidTransition)
}

func TestDRMEntrySubmitIncomplete(t *testing.T) {
	entry := completeEntry()
	entry.Amount = 0

	assert.ErrorIs(t, entry.Submit(10, time.Now()), ErrIncompleteEntry)
	assert.Equal(t, DRMStatusDraft, entry.Status)
}

func TestDRMEntrySelfReview(t *testing.T) {
	entry := completeEntry()
	now := time.Now()

	require.NoError(t, entry.Submit(10, now))
	assert.ErrorIs(t, entry.Scrutinize(10, now), ErrSelfReview)
	assert.Equal(t, DRMStatusSubmitted, entry.Status)

	require.NoError(t, entry.Scrutinize(20, now))
}

func TestDRMEntryRejectRequiresReason(t *testing.T) {
	entry := completeEntry()
	now := time.Now()

	require.NoError(t, entry.Submit(10, now))
	assert.ErrorIs(t, entry.Reject(20, now, "  "), ErrRejectionReasonRequired)

	require.NoError(t, entry.Reject(20, now, "amount does not match the counter report"))
	assert.Equal(t, DRMStatusRejected, entry.Status)
	assert.Equal(t, "amount does not match the counter report", entry.Workflow.RejectionReason)
}

func TestDRMEntryResubmitClearsRejection(t *testing.T) {
	entry := completeEntry()
	now := time.Now()

	require.NoError(t, entry.Submit(10, now))
	require.NoError(t, entry.Reject(20, now, "wrong category"))
	assert.True(t, entry.Editable())

	require.NoError(t, entry.Submit(10, now))
	assert.Equal(t, DRMStatusSubmitted, entry.Status)
	assert.Nil(t, entry.Workflow.RejectedBy)
	assert.Nil(t, entry.Workflow.RejectedAt)
	assert.Empty(t, entry.Workflow.RejectionReason)
}

func TestDRMEntryEditable(t *testing.T) {
	entry := completeEntry()
	assert.True(t, entry.Editable())

	require.NoError(t, entry.Submit(10, time.Now()))
	assert.False(t, entry.Editable())
}
