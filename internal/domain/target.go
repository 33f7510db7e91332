package domain

import "time"

type TargetStatus string

const (
	TargetStatusActive   TargetStatus = "active"
	TargetStatusArchived TargetStatus = "archived"
	TargetStatusRevised  TargetStatus = "revised"
)

type TargetValue struct {
	Target   float64 `json:"target"`
	Unit     string  `json:"unit"`
	Priority string  `json:"priority"`
}

// Target holds one office's goals for a financial year, keyed by metric name.
type Target struct {
	ID            int64                  `json:"id"`
	OfficeID      int64                  `json:"officeId"`
	OfficeName    string                 `json:"officeName,omitempty"`
	FinancialYear string                 `json:"financialYear"`
	Targets       map[string]TargetValue `json:"targets"`
	Status        TargetStatus           `json:"status"`
	SetBy         int64                  `json:"setBy"`
	ApprovedBy    *int64                 `json:"approvedBy,omitempty"`
	Notes         string                 `json:"notes,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
	Version       int32                  `json:"-"`
}
