package domain

import (
	"errors"
	"strings"
	"time"
)

type DRMStatus string

const (
	DRMStatusDraft       DRMStatus = "Draft"
	DRMStatusSubmitted   DRMStatus = "Submitted"
	DRMStatusScrutinized DRMStatus = "Scrutinized"
	DRMStatusFinalized   DRMStatus = "Finalized"
	DRMStatusRejected    DRMStatus = "Rejected"
)

type DRMCategory string

const (
	DRMCategoryRevenue     DRMCategory = "revenue"
	DRMCategoryExpenditure DRMCategory = "expenditure"
	DRMCategorySavings     DRMCategory = "savings"
	DRMCategoryInsurance   DRMCategory = "insurance"
	DRMCategoryOther       DRMCategory = "other"
)

var (
	ErrInvalidTransition       = errors.New("invalid workflow transition")
	ErrEntryNotEditable        = errors.New("entry can only be edited in Draft or Rejected status")
	ErrIncompleteEntry         = errors.New("title, description, category and a positive amount are required before submission")
	ErrRejectionReasonRequired = errors.New("a rejection reason is required")
	ErrSelfReview              = errors.New("an entry cannot be scrutinized by its submitter")
)

// drmTransitions is the complete set of legal workflow edges. Finalized is
// terminal; Rejected re-enters Submitted once the entry is edited and
// resubmitted.
var drmTransitions = map[DRMStatus][]DRMStatus{
	DRMStatusDraft:       {DRMStatusSubmitted},
	DRMStatusSubmitted:   {DRMStatusScrutinized, DRMStatusRejected},
	DRMStatusScrutinized: {DRMStatusFinalized, DRMStatusRejected},
	DRMStatusRejected:    {DRMStatusSubmitted},
	DRMStatusFinalized:   {},
}

func (s DRMStatus) CanTransitionTo(to DRMStatus) bool {
	for _, next := range drmTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// DRMWorkflow is the audit trail of who drove each transition and when.
type DRMWorkflow struct {
	CreatedBy       int64      `json:"createdBy"`
	CreatedAt       time.Time  `json:"createdAt"`
	SubmittedBy     *int64     `json:"submittedBy,omitempty"`
	SubmittedAt     *time.Time `json:"submittedAt,omitempty"`
	ScrutinizedBy   *int64     `json:"scrutinizedBy,omitempty"`
	ScrutinizedAt   *time.Time `json:"scrutinizedAt,omitempty"`
	FinalizedBy     *int64     `json:"finalizedBy,omitempty"`
	FinalizedAt     *time.Time `json:"finalizedAt,omitempty"`
	RejectedBy      *int64     `json:"rejectedBy,omitempty"`
	RejectedAt      *time.Time `json:"rejectedAt,omitempty"`
	RejectionReason string     `json:"rejectionReason,omitempty"`
}

type DRMEntry struct {
	ID          int64       `json:"id"`
	EntryNumber string      `json:"entryNumber"`
	OfficeID    int64       `json:"officeId"`
	OfficeName  string      `json:"officeName,omitempty"`
	Month       int         `json:"month"`
	Year        int         `json:"year"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Category    DRMCategory `json:"category"`
	Amount      float64     `json:"amount"`
	Currency    string      `json:"currency"`
	Status      DRMStatus   `json:"status"`
	Workflow    DRMWorkflow `json:"workflow"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	Version     int32       `json:"version"`
}

type DRMCommentType string

const (
	DRMCommentReview        DRMCommentType = "review"
	DRMCommentClarification DRMCommentType = "clarification"
	DRMCommentApproval      DRMCommentType = "approval"
	DRMCommentRejection     DRMCommentType = "rejection"
)

type DRMComment struct {
	ID        int64          `json:"id"`
	EntryID   int64          `json:"entryId"`
	UserID    int64          `json:"userId"`
	Comment   string         `json:"comment"`
	Type      DRMCommentType `json:"type"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Editable reports whether amount, category, title and description may still
// change. Everything past submission is frozen until a rejection reopens it.
func (e *DRMEntry) Editable() bool {
	return e.Status == DRMStatusDraft || e.Status == DRMStatusRejected
}

func (e *DRMEntry) complete() bool {
	return strings.TrimSpace(e.Title) != "" &&
		strings.TrimSpace(e.Description) != "" &&
		e.Category != "" &&
		e.Amount > 0
}

// Submit moves the entry from Draft or Rejected into Submitted. A resubmission
// clears the previous rejection.
func (e *DRMEntry) Submit(actorID int64, now time.Time) error {
	if !e.Status.CanTransitionTo(DRMStatusSubmitted) {
		return ErrInvalidTransition
	}
	if !e.complete() {
		return ErrIncompleteEntry
	}

	e.Status = DRMStatusSubmitted
	e.Workflow.SubmittedBy = &actorID
	e.Workflow.SubmittedAt = &now
	e.Workflow.RejectedBy = nil
	e.Workflow.RejectedAt = nil
	e.Workflow.RejectionReason = ""
	return nil
}

// Scrutinize records the review step. The submitter may not review their own
// entry.
func (e *DRMEntry) Scrutinize(actorID int64, now time.Time) error {
	if !e.Status.CanTransitionTo(DRMStatusScrutinized) {
		return ErrInvalidTransition
	}
	if e.Workflow.SubmittedBy != nil && *e.Workflow.SubmittedBy == actorID {
		return ErrSelfReview
	}

	e.Status = DRMStatusScrutinized
	e.Workflow.ScrutinizedBy = &actorID
	e.Workflow.ScrutinizedAt = &now
	return nil
}

// Finalize is terminal; the entry is immutable afterwards.
func (e *DRMEntry) Finalize(actorID int64, now time.Time) error {
	if !e.Status.CanTransitionTo(DRMStatusFinalized) {
		return ErrInvalidTransition
	}

	e.Status = DRMStatusFinalized
	e.Workflow.FinalizedBy = &actorID
	e.Workflow.FinalizedAt = &now
	return nil
}

// Reject sends the entry back for edits from Submitted or Scrutinized.
func (e *DRMEntry) Reject(actorID int64, now time.Time, reason string) error {
	if !e.Status.CanTransitionTo(DRMStatusRejected) {
		return ErrInvalidTransition
	}
	if strings.TrimSpace(reason) == "" {
		return ErrRejectionReasonRequired
	}

	e.Status = DRMStatusRejected
	e.Workflow.RejectedBy = &actorID
	e.Workflow.RejectedAt = &now
	e.Workflow.RejectionReason = reason
	return nil
}
