// api/audit/model.go
package audit

import (
	"time"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// AuditRecord is one append-only entry. Optional fields are nil when the
// request did not carry them.
type AuditRecord struct {
	ID           string      `json:"id"`
	ActorID      *string     `json:"actor_id"`
	ActorEmail   *string     `json:"actor_email"`
	Action       string      `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   *string     `json:"resource_id"`
	TenantID     *string     `json:"tenant_id"`
	Status       string      `json:"status"`
	Method       string      `json:"method"`
	Path         string      `json:"path"`
	IPAddress    string      `json:"ip_address"`
	UserAgent    string      `json:"user_agent"`
	RequestID    string      `json:"request_id"`
	Payload      interface{} `json:"payload"`
	ErrorMessage *string     `json:"error_message"`
	CreatedAt    time.Time   `json:"created_at"`
}

// RecordInput is what callers hand to the recorder. Empty strings mean the
// value is absent.
type RecordInput struct {
	ActorID      string
	ActorEmail   string
	Action       string
	ResourceType string
	ResourceID   string
	TenantID     string
	Status       string
	Method       string
	Path         string
	IPAddress    string
	UserAgent    string
	RequestID    string
	Payload      interface{}
	ErrorMessage string
}

type AuditFilter struct {
	ActorID      string    `form:"actor_id"`
	TenantID     string    `form:"tenant_id"`
	Action       string    `form:"action"`
	ResourceType string    `form:"resource_type"`
	ResourceID   string    `form:"resource_id"`
	Status       string    `form:"status"`
	From         time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To           time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit        int       `form:"limit"`
	Offset       int       `form:"offset"`
}

const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 500
)

// Normalize clamps the page size.
func (f AuditFilter) Normalize() AuditFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultQueryLimit
	}
	if f.Limit > MaxQueryLimit {
		f.Limit = MaxQueryLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
