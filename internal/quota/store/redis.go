package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"quotaguard/internal/quota/models"
	tenantmodels "quotaguard/internal/tenant/models"
	"quotaguard/internal/tier"
	id "quotaguard/pkg/domain"
	dErrors "quotaguard/pkg/domain-errors"
	"quotaguard/pkg/platform/middleware/requesttime"
)

// Tenant records live in one hash per tenant. Lua scripts run check and
// mutate server-side in a single script invocation, which Redis executes
// atomically: the same no-read-then-write guarantee the Postgres store gets
// from conditional UPDATEs.

const tenantKeyPrefix = "tenant:"

// incrScript: ARGV = field, delta, max, window (unix seconds or ""), now.
// Returns -1 missing tenant, 0 rejected, 1 applied.
var incrScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
if ARGV[4] ~= '' then
  local w = redis.call('HGET', KEYS[1], 'expense_window_start')
  if not w or w == '' or w ~= ARGV[4] then
    return 0
  end
end
local current = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
if current + tonumber(ARGV[2]) > tonumber(ARGV[3]) then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], current + tonumber(ARGV[2]))
redis.call('HSET', KEYS[1], 'updated_at', ARGV[5])
return 1
`)

// resetScript: ARGV = field, new value, window start (unix seconds), now.
// Applies only when the stored window is unset or strictly older.
var resetScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local w = redis.call('HGET', KEYS[1], 'expense_window_start')
if w and w ~= '' and tonumber(w) >= tonumber(ARGV[3]) then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[1], 'expense_window_start', ARGV[3])
redis.call('HSET', KEYS[1], 'updated_at', ARGV[4])
return 1
`)

// decrScript: ARGV = field, delta, now. Floor-clamps at zero.
var decrScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return -1
end
local current = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or '0')
local next = current - tonumber(ARGV[2])
if next < 0 then
  next = 0
end
redis.call('HSET', KEYS[1], ARGV[1], next)
redis.call('HSET', KEYS[1], 'updated_at', ARGV[3])
return 1
`)

// RedisStore persists tenant records in Redis hashes.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func tenantKey(tenantID id.TenantID) string {
	return tenantKeyPrefix + tenantID.String()
}

func (s *RedisStore) Get(ctx context.Context, tenantID id.TenantID) (*tenantmodels.Tenant, error) {
	fields, err := s.client.HGetAll(ctx, tenantKey(tenantID)).Result()
	if err != nil {
		return nil, redisUnavailable(ctx, err, "read tenant hash")
	}
	if len(fields) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}

	t := &tenantmodels.Tenant{
		ID:     tenantID,
		Tier:   tier.Tier(fields["subscription_tier"]),
		Status: tenantmodels.SubscriptionStatus(fields["subscription_status"]),
	}
	t.CurrentProjects, _ = strconv.Atoi(fields["current_projects"])
	t.CurrentMonthlyExpenses, _ = strconv.Atoi(fields["current_monthly_expenses"])
	t.CurrentUsers, _ = strconv.Atoi(fields["current_users"])

	if raw := fields["expense_window_start"]; raw != "" {
		if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
			ws := time.Unix(unix, 0).UTC()
			t.ExpenseWindowStart = &ws
		}
	}
	t.CreatedAt = parseStoredTime(fields["created_at"])
	t.UpdatedAt = parseStoredTime(fields["updated_at"])
	return t, nil
}

func (s *RedisStore) Create(ctx context.Context, t *tenantmodels.Tenant) error {
	if err := t.Validate(); err != nil {
		return err
	}

	key := tenantKey(t.ID)
	// HSETNX on a marker field makes creation race-safe without WATCH.
	created, err := s.client.HSetNX(ctx, key, "subscription_tier", string(t.Tier)).Result()
	if err != nil {
		return redisUnavailable(ctx, err, "create tenant hash")
	}
	if !created {
		return dErrors.New(dErrors.CodeConflict, "tenant already exists")
	}

	window := ""
	if t.ExpenseWindowStart != nil {
		window = strconv.FormatInt(t.ExpenseWindowStart.UTC().Unix(), 10)
	}
	err = s.client.HSet(ctx, key,
		"subscription_status", string(t.Status),
		"current_projects", t.CurrentProjects,
		"current_monthly_expenses", t.CurrentMonthlyExpenses,
		"current_users", t.CurrentUsers,
		"expense_window_start", window,
		"created_at", t.CreatedAt.UTC().Format(time.RFC3339Nano),
		"updated_at", t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return redisUnavailable(ctx, err, "populate tenant hash")
	}
	return nil
}

func (s *RedisStore) UpdateTier(ctx context.Context, tenantID id.TenantID, newTier tier.Tier, status tenantmodels.SubscriptionStatus) error {
	key := tenantKey(tenantID)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return redisUnavailable(ctx, err, "check tenant hash")
	}
	if exists == 0 {
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	err = s.client.HSet(ctx, key,
		"subscription_tier", string(newTier),
		"subscription_status", string(status),
		"updated_at", requesttime.Now(ctx).Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return redisUnavailable(ctx, err, "update tenant tier")
	}
	return nil
}

func (s *RedisStore) ConditionalIncrement(ctx context.Context, tenantID id.TenantID, field models.CounterField, delta, maxValue int, window *time.Time) (models.Outcome, error) {
	if !field.IsValid() {
		return models.OutcomeRejected, dErrors.New(dErrors.CodeInvalidInput, "unknown counter field")
	}
	if delta <= 0 {
		return models.OutcomeRejected, dErrors.New(dErrors.CodeInvalidInput, "delta must be positive")
	}

	windowArg := ""
	if window != nil {
		windowArg = strconv.FormatInt(window.UTC().Unix(), 10)
	}

	result, err := incrScript.Run(ctx, s.client, []string{tenantKey(tenantID)},
		string(field), delta, maxValue, windowArg,
		requesttime.Now(ctx).Format(time.RFC3339Nano)).Int()
	if err != nil {
		return models.OutcomeRejected, redisUnavailable(ctx, err, "conditional increment")
	}
	return scriptOutcome(result)
}

func (s *RedisStore) ConditionalReset(ctx context.Context, tenantID id.TenantID, field models.CounterField, newValue int, windowStart time.Time) (models.Outcome, error) {
	if !field.IsValid() {
		return models.OutcomeRejected, dErrors.New(dErrors.CodeInvalidInput, "unknown counter field")
	}
	if newValue < 0 {
		return models.OutcomeRejected, dErrors.New(dErrors.CodeInvalidInput, "counter value must be non-negative")
	}

	result, err := resetScript.Run(ctx, s.client, []string{tenantKey(tenantID)},
		string(field), newValue, windowStart.UTC().Unix(),
		requesttime.Now(ctx).Format(time.RFC3339Nano)).Int()
	if err != nil {
		return models.OutcomeRejected, redisUnavailable(ctx, err, "conditional reset")
	}
	return scriptOutcome(result)
}

func (s *RedisStore) Decrement(ctx context.Context, tenantID id.TenantID, field models.CounterField, delta int) error {
	if !field.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "unknown counter field")
	}
	if delta <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "delta must be positive")
	}

	result, err := decrScript.Run(ctx, s.client, []string{tenantKey(tenantID)},
		string(field), delta,
		requesttime.Now(ctx).Format(time.RFC3339Nano)).Int()
	if err != nil {
		return redisUnavailable(ctx, err, "decrement counter")
	}
	if result == -1 {
		return dErrors.New(dErrors.CodeNotFound, "tenant not found")
	}
	return nil
}

func scriptOutcome(result int) (models.Outcome, error) {
	switch result {
	case 1:
		return models.OutcomeApplied, nil
	case -1:
		return models.OutcomeRejected, dErrors.New(dErrors.CodeNotFound, "tenant not found")
	default:
		return models.OutcomeRejected, nil
	}
}

func redisUnavailable(ctx context.Context, err error, op string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, op+" timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeStoreUnavailable, op+" failed")
}

func parseStoredTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
