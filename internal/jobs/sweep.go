package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stacklight/identity-server-go/internal/repository"
)

// SweepJob periodically removes expired refresh tokens and stale
// password reset requests.
type SweepJob struct {
	refreshRepo repository.RefreshTokenRepository
	resetRepo   repository.PasswordResetRepository
	interval    time.Duration
	done        chan struct{}
}

func NewSweepJob(
	refreshRepo repository.RefreshTokenRepository,
	resetRepo repository.PasswordResetRepository,
	interval time.Duration,
) *SweepJob {
	return &SweepJob{
		refreshRepo: refreshRepo,
		resetRepo:   resetRepo,
		interval:    interval,
		done:        make(chan struct{}),
	}
}

func (j *SweepJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("sweep job started")
}

func (j *SweepJob) Stop() {
	close(j.done)
	log.Info().Msg("sweep job stopped")
}

func (j *SweepJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *SweepJob) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runSweep(ctx, "refresh tokens", j.refreshRepo.DeleteExpired)
	j.runSweep(ctx, "password resets", j.resetRepo.DeleteExpired)
}

func (j *SweepJob) runSweep(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to sweep %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("swept expired %s", name)
	}
}
