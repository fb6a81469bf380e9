// api/audit/sql_repository.go
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/oarkflow/squealx"

	helper_util "github.com/dev-mohitbeniwal/gatekeeper/api/util/helper"
)

const recordColumns = `id, actor_id, actor_email, action, resource_type, resource_id, tenant_id, status,
	method, path, ip_address, user_agent, request_id, payload_json, error_message, created_at`

// SQLRepository appends audit records to the audit_records table.
type SQLRepository struct {
	db *squealx.DB
}

func NewSQLRepository(db *squealx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Save(ctx context.Context, record AuditRecord) error {
	payload, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("encode audit payload: %w", err)
	}
	q := `INSERT INTO audit_records(` + recordColumns + `) VALUES(:id, :actor_id, :actor_email, :action, :resource_type,
		:resource_id, :tenant_id, :status, :method, :path, :ip_address, :user_agent, :request_id, :payload_json,
		:error_message, :created_at)`
	_, err = r.db.NamedExecContext(ctx, q, map[string]any{
		"id":            record.ID,
		"actor_id":      nullable(record.ActorID),
		"actor_email":   nullable(record.ActorEmail),
		"action":        record.Action,
		"resource_type": record.ResourceType,
		"resource_id":   nullable(record.ResourceID),
		"tenant_id":     nullable(record.TenantID),
		"status":        record.Status,
		"method":        record.Method,
		"path":          record.Path,
		"ip_address":    record.IPAddress,
		"user_agent":    record.UserAgent,
		"request_id":    record.RequestID,
		"payload_json":  string(payload),
		"error_message": nullable(record.ErrorMessage),
		"created_at":    record.CreatedAt,
	})
	return err
}

func (r *SQLRepository) Query(ctx context.Context, filter AuditFilter) ([]AuditRecord, error) {
	filter = filter.Normalize()

	q := `SELECT ` + recordColumns + ` FROM audit_records WHERE 1=1`
	params := map[string]any{"limit": filter.Limit, "offset": filter.Offset}
	for column, value := range map[string]string{
		"actor_id":      filter.ActorID,
		"tenant_id":     filter.TenantID,
		"action":        filter.Action,
		"resource_type": filter.ResourceType,
		"resource_id":   filter.ResourceID,
		"status":        filter.Status,
	} {
		if value != "" {
			q += " AND " + column + " = :" + column
			params[column] = value
		}
	}
	if !filter.From.IsZero() {
		q += " AND created_at >= :from"
		params["from"] = filter.From.UTC()
	}
	if !filter.To.IsZero() {
		q += " AND created_at <= :to"
		params["to"] = filter.To.UTC()
	}
	q += " ORDER BY seq DESC LIMIT :limit OFFSET :offset"

	rows, err := r.db.NamedQueryContext(ctx, q, params)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]AuditRecord, 0)
	for rows.Next() {
		var (
			rec                                                     AuditRecord
			actorID, actorEmail, resourceID, tenantID, errorMessage sql.NullString
			payloadJSON                                             string
			createdRaw                                              interface{}
		)
		if err := rows.Scan(&rec.ID, &actorID, &actorEmail, &rec.Action, &rec.ResourceType, &resourceID, &tenantID,
			&rec.Status, &rec.Method, &rec.Path, &rec.IPAddress, &rec.UserAgent, &rec.RequestID, &payloadJSON,
			&errorMessage, &createdRaw); err != nil {
			return nil, err
		}
		rec.ActorID = fromNull(actorID)
		rec.ActorEmail = fromNull(actorEmail)
		rec.ResourceID = fromNull(resourceID)
		rec.TenantID = fromNull(tenantID)
		rec.ErrorMessage = fromNull(errorMessage)
		if err := json.Unmarshal([]byte(payloadJSON), &rec.Payload); err != nil {
			return nil, fmt.Errorf("decode audit payload %s: %w", rec.ID, err)
		}
		if rec.CreatedAt, err = helper_util.ParseRequiredTime(createdRaw); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func nullable(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
