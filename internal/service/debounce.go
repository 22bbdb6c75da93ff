package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/respondaai/automation-server-go/internal/audit"
	"github.com/respondaai/automation-server-go/internal/config"
	"github.com/respondaai/automation-server-go/internal/metrics"
	"github.com/respondaai/automation-server-go/internal/repository"
)

// TriggerHandler consumes a claimed trigger.
type TriggerHandler interface {
	HandleTriggerFired(ctx context.Context, tenantID, phone string) error
}

// DebounceService coalesces message bursts. Every schedule persists a
// pending trigger; in-process timers are only an optimization on top of
// the persisted schedule, so a crashed process loses no firings (the
// sweeper picks them up).
type DebounceService struct {
	triggers repository.TriggerRepository
	handler  TriggerHandler
	now      func() time.Time

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewDebounceService(triggers repository.TriggerRepository, handler TriggerHandler) *DebounceService {
	return &DebounceService{
		triggers: triggers,
		handler:  handler,
		now:      time.Now,
		timers:   make(map[string]*time.Timer),
	}
}

// Schedule arms (or re-arms) the debounce window for one conversation.
// A zero or negative delay fires immediately, still through the claim
// path so concurrent schedulers cannot double-fire.
func (s *DebounceService) Schedule(ctx context.Context, tenantID, phone string, delay time.Duration) error {
	scheduledAt := s.now().Add(delay)
	if _, err := s.triggers.Upsert(ctx, tenantID, phone, scheduledAt); err != nil {
		return err
	}

	if delay <= 0 {
		go s.fireDetached(tenantID, phone)
		return nil
	}

	key := tenantID + "|" + phone
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[key]; ok {
		timer.Reset(delay)
		return nil
	}
	s.timers[key] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, key)
		s.mu.Unlock()
		s.fireDetached(tenantID, phone)
	})
	return nil
}

// fireDetached runs a firing outside the request context so a webhook
// response never waits on reply generation.
func (s *DebounceService) fireDetached(tenantID, phone string) {
	ctx, cancel := context.WithTimeout(context.Background(), config.CompletionTimeout+config.GatewayTimeout+30*time.Second)
	defer cancel()
	if err := s.Fire(ctx, tenantID, phone); err != nil {
		log.Error().Err(err).
			Str("tenant_id", tenantID).
			Str("phone", phone).
			Msg("trigger firing failed")
	}
}

// Fire attempts to claim and process the pending trigger for one
// conversation. It is safe to call from any number of workers: the
// tolerance check drops re-armed triggers and the claim is a
// compare-and-set, so each trigger is processed at most once.
func (s *DebounceService) Fire(ctx context.Context, tenantID, phone string) error {
	trigger, err := s.triggers.FindUnprocessed(ctx, tenantID, phone)
	if err != nil {
		return err
	}
	if trigger == nil {
		return nil
	}

	// A later message pushed scheduled_at forward; this firing is stale.
	if trigger.ScheduledAt.After(s.now().Add(config.TriggerTolerance)) {
		return nil
	}

	claimed, err := s.triggers.Claim(ctx, trigger.ID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	metrics.TriggersClaimed.Inc()
	audit.Log(audit.Event{
		Type:     audit.EventTriggerClaimed,
		TenantID: tenantID,
		Phone:    phone,
		Details:  map[string]interface{}{"trigger_id": trigger.ID},
	})

	return s.handler.HandleTriggerFired(ctx, tenantID, phone)
}

// Stop cancels all armed in-process timers. Persisted triggers survive
// and fire through the sweeper after restart.
func (s *DebounceService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}
