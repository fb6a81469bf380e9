// api/audit/service.go
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/gatekeeper/api/logging"
)

const saveTimeout = 5 * time.Second

// Service records audit entries and reads them back.
type Service interface {
	// Record persists one sanitized entry. It never fails the caller:
	// persistence errors are logged and dropped.
	Record(ctx context.Context, input RecordInput)
	QueryRecords(ctx context.Context, filter AuditFilter) ([]AuditRecord, error)
}

type service struct {
	repo     Repository
	denylist []string
	now      func() time.Time
}

func NewService(repo Repository, denylist []string) Service {
	return &service{repo: repo, denylist: denylist, now: time.Now}
}

func (s *service) Record(ctx context.Context, input RecordInput) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Audit recording panicked", zap.Any("panic", r), zap.String("action", input.Action))
		}
	}()

	status := input.Status
	if status != StatusSuccess {
		status = StatusFail
	}
	record := AuditRecord{
		ID:           uuid.New().String(),
		ActorID:      optional(input.ActorID),
		ActorEmail:   optional(input.ActorEmail),
		Action:       input.Action,
		ResourceType: input.ResourceType,
		ResourceID:   optional(input.ResourceID),
		TenantID:     optional(input.TenantID),
		Status:       status,
		Method:       input.Method,
		Path:         input.Path,
		IPAddress:    input.IPAddress,
		UserAgent:    input.UserAgent,
		RequestID:    input.RequestID,
		Payload:      Sanitize(input.Payload, s.denylist),
		ErrorMessage: optional(input.ErrorMessage),
		CreatedAt:    s.now().UTC(),
	}

	// the request may already be cancelled; the record must still land
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := s.repo.Save(saveCtx, record); err != nil {
		logger.Error("Failed to persist audit record",
			zap.Error(err),
			zap.String("action", record.Action),
			zap.String("resourceType", record.ResourceType),
			zap.String("requestID", record.RequestID))
		return
	}
	logger.Debug("Audit record stored",
		zap.String("id", record.ID),
		zap.String("action", record.Action),
		zap.String("status", record.Status))
}

func (s *service) QueryRecords(ctx context.Context, filter AuditFilter) ([]AuditRecord, error) {
	records, err := s.repo.Query(ctx, filter.Normalize())
	if err != nil {
		logger.Error("Failed to query audit records", zap.Error(err))
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	return records, nil
}
