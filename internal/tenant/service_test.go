package tenant_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"quotaguard/internal/quota/store"
	"quotaguard/internal/security"
	"quotaguard/internal/tenant"
	"quotaguard/internal/tenant/models"
	"quotaguard/internal/tier"
	id "quotaguard/pkg/domain"
	dErrors "quotaguard/pkg/domain-errors"
	"quotaguard/pkg/platform/middleware/requesttime"
)

type ServiceSuite struct {
	suite.Suite

	store *store.MemoryStore
	sink  *security.MemorySink
	svc   *tenant.Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	s.sink = security.NewMemorySink()
	s.svc = tenant.NewService(s.store, tier.NewCatalog(),
		tenant.WithSecuritySink(s.sink))
}

func (s *ServiceSuite) ctxAt(t time.Time) context.Context {
	return requesttime.WithTime(context.Background(), t)
}

func (s *ServiceSuite) TestOnboardMintsIDAndStartsOnTrial() {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	created, err := s.svc.Onboard(s.ctxAt(now), "")
	s.Require().NoError(err)
	s.True(len(created.ID.String()) > 3)
	s.Equal(tier.TierTrial, created.Tier)
	s.Equal(models.StatusTrialing, created.Status)
	s.Zero(created.CurrentProjects)
	s.Zero(created.CurrentMonthlyExpenses)
	s.Zero(created.CurrentUsers)
	s.Nil(created.ExpenseWindowStart)
	s.Equal(now, created.CreatedAt)

	stored, err := s.store.Get(context.Background(), created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, stored.ID)

	events := s.sink.ByType(security.EventTenantOnboarded)
	s.Require().Len(events, 1)
	s.Equal(created.ID.String(), events[0].Context["tenant_id"])
}

func (s *ServiceSuite) TestOnboardWithCallerSuppliedID() {
	created, err := s.svc.Onboard(context.Background(), id.TenantID("tn_provisioned"))
	s.Require().NoError(err)
	s.Equal("tn_provisioned", created.ID.String())
}

func (s *ServiceSuite) TestOnboardDuplicateConflicts() {
	_, err := s.svc.Onboard(context.Background(), id.TenantID("tn_dup"))
	s.Require().NoError(err)

	_, err = s.svc.Onboard(context.Background(), id.TenantID("tn_dup"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Len(s.sink.ByType(security.EventTenantOnboarded), 1)
}

func (s *ServiceSuite) TestChangeTier() {
	created, err := s.svc.Onboard(context.Background(), "")
	s.Require().NoError(err)

	updated, err := s.svc.ChangeTier(context.Background(), created.ID, tier.TierProfessional, models.StatusActive)
	s.Require().NoError(err)
	s.Equal(tier.TierProfessional, updated.Tier)
	s.Equal(models.StatusActive, updated.Status)

	events := s.sink.ByType(security.EventTenantTierChanged)
	s.Require().Len(events, 1)
	s.Equal(string(tier.TierTrial), events[0].Context["from"])
	s.Equal(string(tier.TierProfessional), events[0].Context["to"])
}

func (s *ServiceSuite) TestChangeTierKeepsCounters() {
	created, err := s.svc.Onboard(context.Background(), "")
	s.Require().NoError(err)

	limits := tier.NewCatalog().LimitsFor(tier.TierTrial)
	for i := 0; i < limits.MaxProjects; i++ {
		_, err := s.store.ConditionalIncrement(context.Background(), created.ID,
			"current_projects", 1, limits.MaxProjects, nil)
		s.Require().NoError(err)
	}

	updated, err := s.svc.ChangeTier(context.Background(), created.ID, tier.TierBasic, models.StatusActive)
	s.Require().NoError(err)
	s.Equal(limits.MaxProjects, updated.CurrentProjects)
}

func (s *ServiceSuite) TestChangeTierRejectsUnknownTier() {
	created, err := s.svc.Onboard(context.Background(), "")
	s.Require().NoError(err)

	_, err = s.svc.ChangeTier(context.Background(), created.ID, tier.Tier("platinum"), models.StatusActive)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Empty(s.sink.ByType(security.EventTenantTierChanged))
}

func (s *ServiceSuite) TestChangeTierRejectsUnknownStatus() {
	created, err := s.svc.Onboard(context.Background(), "")
	s.Require().NoError(err)

	_, err = s.svc.ChangeTier(context.Background(), created.ID, tier.TierBasic, models.SubscriptionStatus("frozen"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestChangeTierUnknownTenant() {
	_, err := s.svc.ChangeTier(context.Background(), id.TenantID("tn_missing"), tier.TierBasic, models.StatusActive)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
