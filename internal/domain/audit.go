package domain

import "time"

type AuditAction string

const (
	AuditActionCreate AuditAction = "CREATE"
	AuditActionUpdate AuditAction = "UPDATE"
	AuditActionDelete AuditAction = "DELETE"
	AuditActionLogin  AuditAction = "LOGIN"
	AuditActionLogout AuditAction = "LOGOUT"
	AuditActionLock   AuditAction = "LOCK"
	AuditActionUnlock AuditAction = "UNLOCK"
	AuditActionImport AuditAction = "IMPORT"
)

// FieldChange is one entry of the field-level diff recorded with a mutation.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"oldValue"`
	NewValue any    `json:"newValue"`
}

// AuditLog rows are append-only; they are never updated or deleted before
// their retention date.
type AuditLog struct {
	ID            int64         `json:"id"`
	EntityType    string        `json:"entityType"`
	EntityID      string        `json:"entityId"`
	Action        AuditAction   `json:"action"`
	UserID        int64         `json:"userId"`
	UserEmail     string        `json:"userEmail"`
	Changes       []FieldChange `json:"changes"`
	IPAddress     string        `json:"ipAddress"`
	RequestID     string        `json:"requestId"`
	Endpoint      string        `json:"endpoint"`
	Method        string        `json:"method"`
	RetentionDate time.Time     `json:"retentionDate"`
	CreatedAt     time.Time     `json:"createdAt"`
}
