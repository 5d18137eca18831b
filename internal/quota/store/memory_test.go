package store

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"quotaguard/internal/quota/models"
	tenantmodels "quotaguard/internal/tenant/models"
	id "quotaguard/pkg/domain"
	dErrors "quotaguard/pkg/domain-errors"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *MemoryStore
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewMemory()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) seedTenant(tenantID id.TenantID) *tenantmodels.Tenant {
	t, err := tenantmodels.NewTenant(tenantID, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, t))
	return t
}

func (s *MemoryStoreSuite) TestCreateAndGet() {
	s.seedTenant("tn_a")

	got, err := s.store.Get(s.ctx, "tn_a")
	s.Require().NoError(err)
	s.Equal(id.TenantID("tn_a"), got.ID)
	s.Zero(got.CurrentProjects)

	s.Run("duplicate create conflicts", func() {
		t, _ := tenantmodels.NewTenant("tn_a", time.Now().UTC())
		s.True(dErrors.HasCode(s.store.Create(s.ctx, t), dErrors.CodeConflict))
	})

	s.Run("missing tenant is not found", func() {
		_, err := s.store.Get(s.ctx, "tn_missing")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("get returns a copy", func() {
		got, _ := s.store.Get(s.ctx, "tn_a")
		got.CurrentProjects = 99
		again, _ := s.store.Get(s.ctx, "tn_a")
		s.Zero(again.CurrentProjects)
	})
}

func (s *MemoryStoreSuite) TestConditionalIncrement() {
	s.seedTenant("tn_a")

	s.Run("applies under the limit", func() {
		out, err := s.store.ConditionalIncrement(s.ctx, "tn_a", models.FieldProjects, 1, 3, nil)
		s.NoError(err)
		s.True(out.Applied())
	})

	s.Run("rejects when the result would exceed the limit", func() {
		for i := 0; i < 2; i++ {
			out, err := s.store.ConditionalIncrement(s.ctx, "tn_a", models.FieldProjects, 1, 3, nil)
			s.NoError(err)
			s.True(out.Applied())
		}
		out, err := s.store.ConditionalIncrement(s.ctx, "tn_a", models.FieldProjects, 1, 3, nil)
		s.NoError(err)
		s.False(out.Applied())

		got, _ := s.store.Get(s.ctx, "tn_a")
		s.Equal(3, got.CurrentProjects, "rejected increment must not touch the record")
	})

	s.Run("rejects on window mismatch", func() {
		window := tenantmodels.MonthStart(time.Now().UTC())
		out, err := s.store.ConditionalIncrement(s.ctx, "tn_a", models.FieldMonthlyExpenses, 1, 50, &window)
		s.NoError(err)
		s.False(out.Applied(), "fresh tenant has no window; windowed increments must reject")
	})

	s.Run("validates inputs", func() {
		_, err := s.store.ConditionalIncrement(s.ctx, "tn_a", "bogus_field", 1, 3, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.store.ConditionalIncrement(s.ctx, "tn_a", models.FieldProjects, 0, 3, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("missing tenant errors", func() {
		_, err := s.store.ConditionalIncrement(s.ctx, "tn_missing", models.FieldProjects, 1, 3, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *MemoryStoreSuite) TestConditionalReset() {
	s.seedTenant("tn_a")
	march := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	april := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	s.Run("applies when window is unset", func() {
		out, err := s.store.ConditionalReset(s.ctx, "tn_a", models.FieldMonthlyExpenses, 1, march)
		s.NoError(err)
		s.True(out.Applied())

		got, _ := s.store.Get(s.ctx, "tn_a")
		s.Equal(1, got.CurrentMonthlyExpenses)
		s.True(got.ExpenseWindowStart.Equal(march))
	})

	s.Run("rejects when stored window is current", func() {
		out, err := s.store.ConditionalReset(s.ctx, "tn_a", models.FieldMonthlyExpenses, 1, march)
		s.NoError(err)
		s.False(out.Applied(), "same-window reset must reject: only one roll per month")
	})

	s.Run("applies when stored window is stale", func() {
		out, err := s.store.ConditionalReset(s.ctx, "tn_a", models.FieldMonthlyExpenses, 1, april)
		s.NoError(err)
		s.True(out.Applied())

		got, _ := s.store.Get(s.ctx, "tn_a")
		s.Equal(1, got.CurrentMonthlyExpenses)
		s.True(got.ExpenseWindowStart.Equal(april))
	})
}

func (s *MemoryStoreSuite) TestDecrement() {
	s.seedTenant("tn_a")
	for i := 0; i < 2; i++ {
		_, err := s.store.ConditionalIncrement(s.ctx, "tn_a", models.FieldUsers, 1, 10, nil)
		s.Require().NoError(err)
	}

	s.Run("decrements", func() {
		s.NoError(s.store.Decrement(s.ctx, "tn_a", models.FieldUsers, 1))
		got, _ := s.store.Get(s.ctx, "tn_a")
		s.Equal(1, got.CurrentUsers)
	})

	s.Run("clamps at zero", func() {
		s.NoError(s.store.Decrement(s.ctx, "tn_a", models.FieldUsers, 5))
		got, _ := s.store.Get(s.ctx, "tn_a")
		s.Zero(got.CurrentUsers)
	})
}

// TestConcurrentIncrementExactness is the core correctness property: N
// concurrent conditional increments against remaining capacity K produce
// exactly K applied outcomes and the counter lands exactly on the limit.
func (s *MemoryStoreSuite) TestConcurrentIncrementExactness() {
	s.seedTenant("tn_a")

	const n = 100
	const limit = 50

	var applied atomic.Int64
	g, ctx := errgroup.WithContext(s.ctx)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			out, err := s.store.ConditionalIncrement(ctx, "tn_a", models.FieldMonthlyExpenses, 1, limit, nil)
			if err != nil {
				return err
			}
			if out.Applied() {
				applied.Add(1)
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	s.EqualValues(limit, applied.Load(), "exactly limit increments may win")
	got, _ := s.store.Get(s.ctx, "tn_a")
	s.Equal(limit, got.CurrentMonthlyExpenses, "stored counter never exceeds the limit")
}

// TestConcurrentResetSingleWinner: among concurrent window rolls for the same
// month, exactly one reset applies.
func (s *MemoryStoreSuite) TestConcurrentResetSingleWinner() {
	s.seedTenant("tn_a")
	window := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)

	var applied atomic.Int64
	g, ctx := errgroup.WithContext(s.ctx)
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			out, err := s.store.ConditionalReset(ctx, "tn_a", models.FieldMonthlyExpenses, 1, window)
			if err != nil {
				return err
			}
			if out.Applied() {
				applied.Add(1)
			}
			return nil
		})
	}
	s.Require().NoError(g.Wait())

	s.EqualValues(1, applied.Load(), "the window must never double-reset")
	got, _ := s.store.Get(s.ctx, "tn_a")
	s.Equal(1, got.CurrentMonthlyExpenses)
}
