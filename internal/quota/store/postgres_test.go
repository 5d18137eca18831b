package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"

	"quotaguard/internal/quota/models"
	dErrors "quotaguard/pkg/domain-errors"
	"quotaguard/pkg/platform/middleware/requesttime"
)

// PostgresStoreSuite verifies that the conditional primitives are single
// UPDATE statements whose precondition sits in the WHERE clause, and that a
// zero rows-affected result maps to a rejection rather than an error.
type PostgresStoreSuite struct {
	suite.Suite
	db    *sql.DB
	mock  sqlmock.Sqlmock
	store *PostgresStore
	ctx   context.Context
	now   time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.db = db
	s.mock = mock
	s.store = NewPostgres(db)
	s.now = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	s.ctx = requesttime.WithTime(context.Background(), s.now)
}

func (s *PostgresStoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *PostgresStoreSuite) TestConditionalIncrementApplied() {
	s.mock.ExpectExec(regexp.QuoteMeta(
		`UPDATE tenants
		SET current_projects = current_projects + $2, updated_at = $3
		WHERE tenant_id = $1 AND current_projects + $2 <= $4`)).
		WithArgs("tn_a", 1, s.now, 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := s.store.ConditionalIncrement(s.ctx, "tn_a", models.FieldProjects, 1, 3, nil)
	s.NoError(err)
	s.True(out.Applied())
}

func (s *PostgresStoreSuite) TestConditionalIncrementRejected() {
	s.mock.ExpectExec(`UPDATE tenants`).
		WithArgs("tn_a", 1, s.now, 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	out, err := s.store.ConditionalIncrement(s.ctx, "tn_a", models.FieldProjects, 1, 3, nil)
	s.NoError(err, "a failed precondition is a rejection, not an error")
	s.False(out.Applied())
}

func (s *PostgresStoreSuite) TestConditionalIncrementWindowed() {
	window := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	s.mock.ExpectExec(regexp.QuoteMeta(`AND expense_window_start = $5`)).
		WithArgs("tn_a", 1, s.now, 50, window).
		WillReturnResult(sqlmock.NewResult(0, 1))

	out, err := s.store.ConditionalIncrement(s.ctx, "tn_a", models.FieldMonthlyExpenses, 1, 50, &window)
	s.NoError(err)
	s.True(out.Applied())
}

func (s *PostgresStoreSuite) TestConditionalIncrementRejectsUnknownField() {
	_, err := s.store.ConditionalIncrement(s.ctx, "tn_a", "evil; DROP TABLE tenants", 1, 3, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput),
		"counter fields outside the whitelist must never reach the database")
}

func (s *PostgresStoreSuite) TestConditionalIncrementStoreError() {
	s.mock.ExpectExec(`UPDATE tenants`).
		WithArgs("tn_a", 1, s.now, 3).
		WillReturnError(fmt.Errorf("connection reset"))

	_, err := s.store.ConditionalIncrement(s.ctx, "tn_a", models.FieldProjects, 1, 3, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeStoreUnavailable))
}

func (s *PostgresStoreSuite) TestConditionalReset() {
	window := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	s.Run("applied when stored window is stale", func() {
		s.mock.ExpectExec(regexp.QuoteMeta(
			`AND (expense_window_start IS NULL OR expense_window_start < $3)`)).
			WithArgs("tn_a", 1, window, s.now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		out, err := s.store.ConditionalReset(s.ctx, "tn_a", models.FieldMonthlyExpenses, 1, window)
		s.NoError(err)
		s.True(out.Applied())
	})

	s.Run("rejected when another request already rolled the window", func() {
		s.mock.ExpectExec(`UPDATE tenants`).
			WithArgs("tn_a", 1, window, s.now).
			WillReturnResult(sqlmock.NewResult(0, 0))

		out, err := s.store.ConditionalReset(s.ctx, "tn_a", models.FieldMonthlyExpenses, 1, window)
		s.NoError(err)
		s.False(out.Applied())
	})
}

func (s *PostgresStoreSuite) TestDecrementClampsAtZero() {
	s.mock.ExpectExec(regexp.QuoteMeta(
		`SET current_users = GREATEST(current_users - $2, 0)`)).
		WithArgs("tn_a", 1, s.now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.store.Decrement(s.ctx, "tn_a", models.FieldUsers, 1))
}

func (s *PostgresStoreSuite) TestGet() {
	window := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"tenant_id", "subscription_tier", "subscription_status",
		"current_projects", "current_monthly_expenses", "current_users",
		"expense_window_start", "created_at", "updated_at",
	}).AddRow("tn_a", "basic", "active", 2, 17, 3, window, s.now, s.now)

	s.mock.ExpectQuery(`SELECT tenant_id`).WithArgs("tn_a").WillReturnRows(rows)

	t, err := s.store.Get(s.ctx, "tn_a")
	s.Require().NoError(err)
	s.Equal(2, t.CurrentProjects)
	s.Equal(17, t.CurrentMonthlyExpenses)
	s.Require().NotNil(t.ExpenseWindowStart)
	s.True(t.ExpenseWindowStart.Equal(window))
}

func (s *PostgresStoreSuite) TestGetNotFound() {
	s.mock.ExpectQuery(`SELECT tenant_id`).WithArgs("tn_missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.store.Get(s.ctx, "tn_missing")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
