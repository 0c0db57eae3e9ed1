package models

import "time"

// AuditEventType is the closed set of audit categories per §6.4.
type AuditEventType string

const (
	AuditEventAuthentication AuditEventType = "authentication"
	AuditEventAdminAction    AuditEventType = "admin_action"
	AuditEventSecurityEvent  AuditEventType = "security_event"
	AuditEventDataAccess     AuditEventType = "data_access"
)

// AuditStatus is the outcome recorded against an audit event.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// AuditEvent is one append-only line of the audit log. Every field is
// required on write; Details carries event-specific context (e.g. the
// result_id and patch fields for a data_access update_result call).
type AuditEvent struct {
	Timestamp time.Time              `json:"timestamp"`
	EventType AuditEventType         `json:"event_type"`
	Actor     string                 `json:"actor"`
	Action    string                 `json:"action"`
	Status    AuditStatus            `json:"status"`
	IPAddress string                 `json:"ip_address"`
	Details   map[string]interface{} `json:"details,omitempty"`
}
