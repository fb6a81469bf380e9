package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepository struct {
	records []AuditRecord
	saveErr error
	panics  bool
	filter  AuditFilter
}

func (r *memoryRepository) Save(ctx context.Context, record AuditRecord) error {
	if r.panics {
		panic("disk on fire")
	}
	if r.saveErr != nil {
		return r.saveErr
	}
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("save without deadline")
	}
	r.records = append(r.records, record)
	return nil
}

func (r *memoryRepository) Query(ctx context.Context, filter AuditFilter) ([]AuditRecord, error) {
	r.filter = filter
	return r.records, nil
}

func TestService_Record(t *testing.T) {
	t.Run("PartialInputStoresNulls", func(t *testing.T) {
		repo := &memoryRepository{}
		svc := NewService(repo, testDenylist)

		svc.Record(context.Background(), RecordInput{
			Action:       "create",
			ResourceType: "policy",
			Status:       StatusSuccess,
			Method:       "POST",
			Path:         "/api/v1/policies",
			Payload:      map[string]interface{}{"name": "p", "secret": "s"},
		})

		require.Len(t, repo.records, 1)
		rec := repo.records[0]
		assert.NotEmpty(t, rec.ID)
		assert.Nil(t, rec.ActorID)
		assert.Nil(t, rec.ActorEmail)
		assert.Nil(t, rec.ResourceID)
		assert.Nil(t, rec.TenantID)
		assert.Nil(t, rec.ErrorMessage)
		assert.Equal(t, StatusSuccess, rec.Status)
		assert.Equal(t, map[string]interface{}{"name": "p"}, rec.Payload)
		assert.WithinDuration(t, time.Now(), rec.CreatedAt, time.Minute)
	})

	t.Run("FailureCarriesError", func(t *testing.T) {
		repo := &memoryRepository{}
		svc := NewService(repo, testDenylist)

		svc.Record(context.Background(), RecordInput{
			ActorID:      "u1",
			TenantID:     "t1",
			Action:       "delete",
			ResourceType: "policy",
			ResourceID:   "p1",
			Status:       StatusFail,
			ErrorMessage: "policy not found",
		})

		require.Len(t, repo.records, 1)
		rec := repo.records[0]
		assert.Equal(t, StatusFail, rec.Status)
		assert.Equal(t, "u1", *rec.ActorID)
		assert.Equal(t, "t1", *rec.TenantID)
		assert.Equal(t, "p1", *rec.ResourceID)
		assert.Equal(t, "policy not found", *rec.ErrorMessage)
	})

	t.Run("CancelledRequestStillRecorded", func(t *testing.T) {
		repo := &memoryRepository{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		NewService(repo, testDenylist).Record(ctx, RecordInput{Action: "update", Status: StatusSuccess})

		assert.Len(t, repo.records, 1)
	})

	t.Run("RepositoryErrorIsSwallowed", func(t *testing.T) {
		svc := NewService(&memoryRepository{saveErr: errors.New("index closed")}, testDenylist)
		assert.NotPanics(t, func() {
			svc.Record(context.Background(), RecordInput{Action: "create"})
		})
	})

	t.Run("RepositoryPanicIsSwallowed", func(t *testing.T) {
		svc := NewService(&memoryRepository{panics: true}, testDenylist)
		assert.NotPanics(t, func() {
			svc.Record(context.Background(), RecordInput{Action: "create"})
		})
	})
}

func TestService_QueryRecords(t *testing.T) {
	repo := &memoryRepository{}
	svc := NewService(repo, testDenylist)

	_, err := svc.QueryRecords(context.Background(), AuditFilter{Limit: 10000, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, MaxQueryLimit, repo.filter.Limit)
	assert.Equal(t, 0, repo.filter.Offset)
}
