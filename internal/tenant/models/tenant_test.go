package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"quotaguard/internal/tier"
	id "quotaguard/pkg/domain"
	dErrors "quotaguard/pkg/domain-errors"
)

type TenantSuite struct {
	suite.Suite
}

func TestTenantSuite(t *testing.T) {
	suite.Run(t, new(TenantSuite))
}

func (s *TenantSuite) TestNewTenant() {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	s.Run("starts on trial with zeroed counters", func() {
		t, err := NewTenant("tn_abc", now)
		s.Require().NoError(err)
		s.Equal(tier.TierTrial, t.Tier)
		s.Equal(StatusTrialing, t.Status)
		s.Zero(t.CurrentProjects)
		s.Zero(t.CurrentMonthlyExpenses)
		s.Zero(t.CurrentUsers)
		s.Nil(t.ExpenseWindowStart)
		s.Equal(now, t.CreatedAt)
	})

	s.Run("rejects empty tenant ID", func() {
		_, err := NewTenant("", now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *TenantSuite) TestValidate() {
	now := time.Now().UTC()
	valid := func() *Tenant {
		t, err := NewTenant(id.TenantID("tn_abc"), now)
		s.Require().NoError(err)
		return t
	}

	s.Run("fresh tenant is valid", func() {
		s.NoError(valid().Validate())
	})

	s.Run("negative counter is an invariant violation", func() {
		t := valid()
		t.CurrentUsers = -1
		s.True(dErrors.HasCode(t.Validate(), dErrors.CodeInvariantViolation))
	})

	s.Run("unknown status is an invariant violation", func() {
		t := valid()
		t.Status = SubscriptionStatus("limbo")
		s.True(dErrors.HasCode(t.Validate(), dErrors.CodeInvariantViolation))
	})
}

func (s *TenantSuite) TestMonthStart() {
	s.Run("truncates to first instant of the month in UTC", func() {
		in := time.Date(2026, time.July, 19, 23, 59, 59, 999, time.UTC)
		s.Equal(time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC), MonthStart(in))
	})

	s.Run("normalizes non-UTC inputs", func() {
		loc := time.FixedZone("UTC+10", 10*3600)
		// 03:00 on July 1 in UTC+10 is still June 30 in UTC.
		in := time.Date(2026, time.July, 1, 3, 0, 0, 0, loc)
		s.Equal(time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC), MonthStart(in))
	})
}
