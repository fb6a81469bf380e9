package dao

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/oarkflow/squealx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	gk_errors "github.com/dev-mohitbeniwal/gatekeeper/api/errors"
	"github.com/dev-mohitbeniwal/gatekeeper/api/model"
)

func newTestDB(t *testing.T) *squealx.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	db := squealx.NewDb(sqlDB, "sqlite", "testdb")
	require.NoError(t, Migrate(context.Background(), db, "sqlite"))
	return db
}

func strPtr(s string) *string { return &s }

func TestSQLPolicyDAO_CreateAndGet(t *testing.T) {
	dao := NewSQLPolicyDAO(newTestDB(t), time.Second)
	ctx := context.Background()

	created, err := dao.CreatePolicy(ctx, model.Policy{
		Name:        "owners",
		Description: "owners manage their documents",
		Effect:      model.EffectAllow,
		Enabled:     true,
		TenantID:    strPtr("tenant-a"),
		Conditions: []model.Condition{
			{Attribute: "subject.id", Operator: model.OpEquals, Value: model.Ref{Path: "resource.ownerId"}, Order: 1},
			{Attribute: "subject.clearanceLevel", Operator: model.OpGreater, Value: 2, Order: 0},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.Version)

	got, err := dao.GetPolicy(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "owners", got.Name)
	assert.Equal(t, model.EffectAllow, got.Effect)
	assert.True(t, got.Enabled)
	require.NotNil(t, got.TenantID)
	assert.Equal(t, "tenant-a", *got.TenantID)
	assert.False(t, got.CreatedAt.IsZero())

	require.Len(t, got.Conditions, 2)
	assert.Equal(t, "subject.clearanceLevel", got.Conditions[0].Attribute)
	assert.Equal(t, float64(2), got.Conditions[0].Value)
	assert.Equal(t, map[string]interface{}{"$ref": "resource.ownerId"}, got.Conditions[1].Value)
	path, ok := model.RefPath(got.Conditions[1].Value)
	assert.True(t, ok)
	assert.Equal(t, "resource.ownerId", path)

	byName, err := dao.FindPolicyByName(ctx, "owners")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
}

func TestSQLPolicyDAO_CreateConflict(t *testing.T) {
	dao := NewSQLPolicyDAO(newTestDB(t), time.Second)
	ctx := context.Background()

	first, err := dao.CreatePolicy(ctx, model.Policy{Name: "dup", Effect: model.EffectDeny, Enabled: true})
	require.NoError(t, err)

	_, err = dao.CreatePolicy(ctx, model.Policy{Name: "dup", Effect: model.EffectAllow})
	assert.ErrorIs(t, err, gk_errors.ErrPolicyConflict)

	_, err = dao.CreatePolicy(ctx, model.Policy{ID: first.ID, Name: "other", Effect: model.EffectAllow})
	assert.ErrorIs(t, err, gk_errors.ErrPolicyConflict)
}

func TestSQLPolicyDAO_ListEnabledPolicies(t *testing.T) {
	dao := NewSQLPolicyDAO(newTestDB(t), time.Second)
	ctx := context.Background()

	for _, p := range []model.Policy{
		{Name: "global", Effect: model.EffectAllow, Enabled: true},
		{Name: "disabled", Effect: model.EffectAllow, Enabled: false},
		{Name: "tenant-a", Effect: model.EffectAllow, Enabled: true, TenantID: strPtr("a")},
		{Name: "tenant-b", Effect: model.EffectDeny, Enabled: true, TenantID: strPtr("b"), Conditions: []model.Condition{
			{Attribute: "action", Operator: model.OpEquals, Value: "DELETE", Order: 3},
			{Attribute: "subject.role", Operator: model.OpIn, Value: []interface{}{"USER"}, Order: 1},
			{Attribute: "subject.department", Operator: model.OpEquals, Value: "ops", Order: 1},
		}},
	} {
		_, err := dao.CreatePolicy(ctx, p)
		require.NoError(t, err)
	}

	all, err := dao.ListEnabledPolicies(ctx, model.TenantFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "global", all[0].Name)
	assert.Equal(t, "tenant-a", all[1].Name)
	assert.Equal(t, "tenant-b", all[2].Name)

	conditions := all[2].Conditions
	require.Len(t, conditions, 3)
	assert.Equal(t, "subject.role", conditions[0].Attribute)
	assert.Equal(t, "subject.department", conditions[1].Attribute)
	assert.Equal(t, "action", conditions[2].Attribute)
	assert.Equal(t, []interface{}{"USER"}, conditions[0].Value)

	scoped, err := dao.ListEnabledPolicies(ctx, model.TenantFilter{model.TenantFilterKey: "a"})
	require.NoError(t, err)
	require.Len(t, scoped, 2)
	assert.Equal(t, "global", scoped[0].Name)
	assert.Equal(t, "tenant-a", scoped[1].Name)

	again, err := dao.ListEnabledPolicies(ctx, model.TenantFilter{})
	require.NoError(t, err)
	assert.Equal(t, all, again)
}

func TestSQLPolicyDAO_UpdatePolicy(t *testing.T) {
	dao := NewSQLPolicyDAO(newTestDB(t), time.Second)
	ctx := context.Background()

	created, err := dao.CreatePolicy(ctx, model.Policy{Name: "readers", Effect: model.EffectAllow, Enabled: true,
		Conditions: []model.Condition{{Attribute: "action", Operator: model.OpEquals, Value: "GET"}}})
	require.NoError(t, err)
	_, err = dao.CreatePolicy(ctx, model.Policy{Name: "writers", Effect: model.EffectAllow})
	require.NoError(t, err)

	update := *created
	update.Enabled = false
	update.Conditions = []model.Condition{{Attribute: "action", Operator: model.OpIn, Value: []interface{}{"GET", "HEAD"}}}
	updated, err := dao.UpdatePolicy(ctx, update)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)

	got, err := dao.GetPolicy(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	require.Len(t, got.Conditions, 1)
	assert.Equal(t, model.OpIn, got.Conditions[0].Operator)
	assert.Equal(t, created.CreatedAt.Unix(), got.CreatedAt.Unix())

	update.Name = "writers"
	_, err = dao.UpdatePolicy(ctx, update)
	assert.ErrorIs(t, err, gk_errors.ErrPolicyConflict)

	_, err = dao.UpdatePolicy(ctx, model.Policy{ID: "missing", Name: "x", Effect: model.EffectDeny})
	assert.ErrorIs(t, err, gk_errors.ErrPolicyNotFound)
}

func TestSQLPolicyDAO_DeleteAndList(t *testing.T) {
	dao := NewSQLPolicyDAO(newTestDB(t), time.Second)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"one", "two", "three"} {
		p, err := dao.CreatePolicy(ctx, model.Policy{Name: name, Effect: model.EffectAllow, Enabled: true,
			Conditions: []model.Condition{{Attribute: "action", Operator: model.OpEquals, Value: name}}})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	require.NoError(t, dao.DeletePolicy(ctx, ids[1]))
	assert.ErrorIs(t, dao.DeletePolicy(ctx, ids[1]), gk_errors.ErrPolicyNotFound)

	_, err := dao.GetPolicy(ctx, ids[1])
	assert.ErrorIs(t, err, gk_errors.ErrPolicyNotFound)

	page, err := dao.ListPolicies(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "three", page[0].Name)
	require.Len(t, page[0].Conditions, 1)
	assert.Equal(t, "three", page[0].Conditions[0].Value)
}

func TestSQLPolicyDAO_StoreFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	dao := NewSQLPolicyDAO(squealx.NewDb(sqlDB, "sqlite", "mock"), time.Second)

	mock.ExpectQuery("SELECT .* FROM policies").WillReturnError(errors.New("connection reset by peer"))
	_, err = dao.ListEnabledPolicies(context.Background(), model.TenantFilter{})
	assert.ErrorIs(t, err, gk_errors.ErrDatabaseOperation)

	mock.ExpectQuery("SELECT .* FROM policies").WillReturnError(context.DeadlineExceeded)
	_, err = dao.GetPolicy(context.Background(), "p1")
	assert.ErrorIs(t, err, gk_errors.ErrDatabaseOperation)
	assert.NotErrorIs(t, err, gk_errors.ErrPolicyNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func rejectConditionAttribute(t *testing.T, db *squealx.DB, attribute string) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), `CREATE TRIGGER reject_condition BEFORE INSERT ON policy_conditions
		WHEN NEW.attribute = '`+attribute+`'
		BEGIN SELECT RAISE(ABORT, 'boom'); END`)
	require.NoError(t, err)
}

func TestSQLPolicyDAO_FailedUpdateKeepsPolicy(t *testing.T) {
	db := newTestDB(t)
	dao := NewSQLPolicyDAO(db, time.Second)
	ctx := context.Background()

	created, err := dao.CreatePolicy(ctx, model.Policy{Name: "admins", Effect: model.EffectAllow, Enabled: true,
		Conditions: []model.Condition{
			{Attribute: "subject.role", Operator: model.OpEquals, Value: "ADMIN", Order: 0},
			{Attribute: "subject.department", Operator: model.OpEquals, Value: "ops", Order: 1},
		}})
	require.NoError(t, err)
	rejectConditionAttribute(t, db, "subject.tenantId")

	update := *created
	update.Conditions = []model.Condition{
		{Attribute: "subject.role", Operator: model.OpEquals, Value: "ADMIN", Order: 0},
		{Attribute: "subject.tenantId", Operator: model.OpEquals, Value: "t1", Order: 1},
	}
	_, err = dao.UpdatePolicy(ctx, update)
	assert.ErrorIs(t, err, gk_errors.ErrDatabaseOperation)

	got, err := dao.GetPolicy(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	require.Len(t, got.Conditions, 2)
	assert.Equal(t, "subject.department", got.Conditions[1].Attribute)
}

func TestSQLPolicyDAO_FailedCreateLeavesNothing(t *testing.T) {
	db := newTestDB(t)
	dao := NewSQLPolicyDAO(db, time.Second)
	ctx := context.Background()
	rejectConditionAttribute(t, db, "subject.tenantId")

	_, err := dao.CreatePolicy(ctx, model.Policy{Name: "scoped", Effect: model.EffectAllow, Enabled: true,
		Conditions: []model.Condition{
			{Attribute: "subject.role", Operator: model.OpEquals, Value: "ADMIN"},
			{Attribute: "subject.tenantId", Operator: model.OpEquals, Value: "t1", Order: 1},
		}})
	assert.ErrorIs(t, err, gk_errors.ErrDatabaseOperation)

	_, err = dao.FindPolicyByName(ctx, "scoped")
	assert.ErrorIs(t, err, gk_errors.ErrPolicyNotFound)

	var conditions int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM policy_conditions`).Scan(&conditions))
	assert.Zero(t, conditions)
}

func TestSQLPolicyDAO_DeleteRollsBack(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	dao := NewSQLPolicyDAO(squealx.NewDb(sqlDB, "sqlite", "mock"), time.Second)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM policy_conditions").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM policies").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	err = dao.DeletePolicy(context.Background(), "p1")
	assert.ErrorIs(t, err, gk_errors.ErrDatabaseOperation)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM policy_conditions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM policies").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err = dao.DeletePolicy(context.Background(), "missing")
	assert.ErrorIs(t, err, gk_errors.ErrPolicyNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
