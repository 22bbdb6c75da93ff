package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/respondaai/automation-server-go/internal/repository"
	"github.com/respondaai/automation-server-go/internal/service"
)

const (
	sweepBatchSize       = 50
	processedRetention   = 24 * time.Hour
	sweepWorkTimeout     = 2 * time.Minute
	cleanupEverySweeps   = 120
)

// SweeperJob is the durability backstop for the debounce scheduler. It
// fires any pending trigger whose in-process timer was lost to a restart,
// and periodically prunes processed rows. Firing goes through the shared
// claim path, so a sweep racing a live timer is harmless.
type SweeperJob struct {
	triggers repository.TriggerRepository
	debounce *service.DebounceService
	interval time.Duration
	done     chan struct{}
}

func NewSweeperJob(triggers repository.TriggerRepository, debounce *service.DebounceService, interval time.Duration) *SweeperJob {
	return &SweeperJob{
		triggers: triggers,
		debounce: debounce,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *SweeperJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("trigger sweeper started")
}

func (j *SweeperJob) Stop() {
	close(j.done)
	log.Info().Msg("trigger sweeper stopped")
}

func (j *SweeperJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	sweeps := 0
	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
			sweeps++
			if sweeps%cleanupEverySweeps == 0 {
				j.cleanup()
			}
		}
	}
}

func (j *SweeperJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepWorkTimeout)
	defer cancel()

	due, err := j.triggers.FindDue(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("failed to query due triggers")
		return
	}

	for _, trigger := range due {
		if err := j.debounce.Fire(ctx, trigger.TenantID, trigger.Phone); err != nil {
			log.Error().Err(err).
				Str("tenant_id", trigger.TenantID).
				Str("phone", trigger.Phone).
				Msg("sweeper failed to fire trigger")
		}
	}
}

func (j *SweeperJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepWorkTimeout)
	defer cancel()

	deleted, err := j.triggers.DeleteProcessedBefore(ctx, time.Now().Add(-processedRetention))
	if err != nil {
		log.Error().Err(err).Msg("failed to prune processed triggers")
		return
	}
	if deleted > 0 {
		log.Info().Int64("deleted", deleted).Msg("pruned processed triggers")
	}
}
