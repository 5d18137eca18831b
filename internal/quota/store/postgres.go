package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quotaguard/internal/quota/models"
	tenantmodels "quotaguard/internal/tenant/models"
	"quotaguard/internal/tier"
	id "quotaguard/pkg/domain"
	dErrors "quotaguard/pkg/domain-errors"
	"quotaguard/pkg/platform/middleware/requesttime"
)

// counterColumns is the closed whitelist of counter fields to columns.
// Field names never come from request input, but the whitelist makes that a
// structural guarantee rather than a calling convention.
var counterColumns = map[models.CounterField]string{
	models.FieldProjects:        "current_projects",
	models.FieldMonthlyExpenses: "current_monthly_expenses",
	models.FieldUsers:           "current_users",
}

// PostgresStore persists tenant records in PostgreSQL. The conditional
// primitives are single UPDATE statements with the precondition in the WHERE
// clause: the row lock taken by UPDATE makes check and mutate indivisible,
// and RowsAffected==0 reports a rejected precondition.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, tenantID id.TenantID) (*tenantmodels.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT tenant_id, subscription_tier, subscription_status,
		       current_projects, current_monthly_expenses, current_users,
		       expense_window_start, created_at, updated_at
		FROM tenants
		WHERE tenant_id = $1
	`, tenantID.String())

	var t tenantmodels.Tenant
	var tenantStr, tierStr, statusStr string
	var windowStart sql.NullTime
	err := row.Scan(&tenantStr, &tierStr, &statusStr,
		&t.CurrentProjects, &t.CurrentMonthlyExpenses, &t.CurrentUsers,
		&windowStart, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	if err != nil {
		return nil, storeUnavailable(ctx, err, "query tenant")
	}

	t.ID = id.TenantID(tenantStr)
	t.Tier = tier.Tier(tierStr)
	t.Status = tenantmodels.SubscriptionStatus(statusStr)
	if windowStart.Valid {
		ws := windowStart.Time.UTC()
		t.ExpenseWindowStart = &ws
	}
	return &t, nil
}

func (s *PostgresStore) Create(ctx context.Context, t *tenantmodels.Tenant) error {
	if err := t.Validate(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (tenant_id, subscription_tier, subscription_status,
		                     current_projects, current_monthly_expenses, current_users,
		                     expense_window_start, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id) DO NOTHING
	`, t.ID.String(), string(t.Tier), string(t.Status),
		t.CurrentProjects, t.CurrentMonthlyExpenses, t.CurrentUsers,
		nullableTime(t.ExpenseWindowStart), t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return storeUnavailable(ctx, err, "insert tenant")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return dErrors.New(dErrors.CodeConflict, "tenant already exists")
	}
	return nil
}

func (s *PostgresStore) UpdateTier(ctx context.Context, tenantID id.TenantID, newTier tier.Tier, status tenantmodels.SubscriptionStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tenants
		SET subscription_tier = $2, subscription_status = $3, updated_at = $4
		WHERE tenant_id = $1
	`, tenantID.String(), string(newTier), string(status), requesttime.Now(ctx))
	if err != nil {
		return storeUnavailable(ctx, err, "update tenant tier")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	return nil
}

// ConditionalIncrement adds delta to a counter in one UPDATE whose WHERE
// clause carries the limit check (and the window match for windowed
// counters). The database evaluates precondition and mutation under the row
// lock, so concurrent calls serialize and at most limit-delta ever commits.
func (s *PostgresStore) ConditionalIncrement(ctx context.Context, tenantID id.TenantID, field models.CounterField, delta, maxValue int, window *time.Time) (models.Outcome, error) {
	column, ok := counterColumns[field]
	if !ok {
		return models.OutcomeRejected, dErrors.New(dErrors.CodeInvalidInput, "unknown counter field")
	}
	if delta <= 0 {
		return models.OutcomeRejected, dErrors.New(dErrors.CodeInvalidInput, "delta must be positive")
	}

	query := fmt.Sprintf(`
		UPDATE tenants
		SET %[1]s = %[1]s + $2, updated_at = $3
		WHERE tenant_id = $1 AND %[1]s + $2 <= $4
	`, column)
	args := []any{tenantID.String(), delta, requesttime.Now(ctx), maxValue}

	if window != nil {
		query += ` AND expense_window_start = $5`
		args = append(args, window.UTC())
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return models.OutcomeRejected, storeUnavailable(ctx, err, "conditional increment")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.OutcomeRejected, storeUnavailable(ctx, err, "conditional increment result")
	}
	if n == 0 {
		return models.OutcomeRejected, nil
	}
	return models.OutcomeApplied, nil
}

// ConditionalReset rolls the expense window: sets the counter and the window
// start iff the stored window is NULL or strictly older. Among concurrent
// resets for the same windowStart, exactly one UPDATE matches.
func (s *PostgresStore) ConditionalReset(ctx context.Context, tenantID id.TenantID, field models.CounterField, newValue int, windowStart time.Time) (models.Outcome, error) {
	column, ok := counterColumns[field]
	if !ok {
		return models.OutcomeRejected, dErrors.New(dErrors.CodeInvalidInput, "unknown counter field")
	}
	if newValue < 0 {
		return models.OutcomeRejected, dErrors.New(dErrors.CodeInvalidInput, "counter value must be non-negative")
	}

	query := fmt.Sprintf(`
		UPDATE tenants
		SET %s = $2, expense_window_start = $3, updated_at = $4
		WHERE tenant_id = $1
		  AND (expense_window_start IS NULL OR expense_window_start < $3)
	`, column)

	res, err := s.db.ExecContext(ctx, query,
		tenantID.String(), newValue, windowStart.UTC(), requesttime.Now(ctx))
	if err != nil {
		return models.OutcomeRejected, storeUnavailable(ctx, err, "conditional reset")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.OutcomeRejected, storeUnavailable(ctx, err, "conditional reset result")
	}
	if n == 0 {
		return models.OutcomeRejected, nil
	}
	return models.OutcomeApplied, nil
}

// Decrement floor-clamps at zero via GREATEST, again in one statement.
func (s *PostgresStore) Decrement(ctx context.Context, tenantID id.TenantID, field models.CounterField, delta int) error {
	column, ok := counterColumns[field]
	if !ok {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown counter field")
	}
	if delta <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "delta must be positive")
	}

	query := fmt.Sprintf(`
		UPDATE tenants
		SET %[1]s = GREATEST(%[1]s - $2, 0), updated_at = $3
		WHERE tenant_id = $1
	`, column)

	res, err := s.db.ExecContext(ctx, query, tenantID.String(), delta, requesttime.Now(ctx))
	if err != nil {
		return storeUnavailable(ctx, err, "decrement counter")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	return nil
}

// storeUnavailable classifies transport/timeout failures so the enforcer can
// fail closed while operators see the real cause.
func storeUnavailable(ctx context.Context, err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, op+" timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, op+" failed")
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
