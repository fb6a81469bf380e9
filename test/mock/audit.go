// test/mock/audit.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/dev-mohitbeniwal/gatekeeper/api/audit"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Record(ctx context.Context, input audit.RecordInput) {
	m.Called(ctx, input)
}

func (m *MockAuditService) QueryRecords(ctx context.Context, filter audit.AuditFilter) ([]audit.AuditRecord, error) {
	args := m.Called(ctx, filter)
	records, _ := args.Get(0).([]audit.AuditRecord)
	return records, args.Error(1)
}
