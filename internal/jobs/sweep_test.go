package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/stacklight/identity-server-go/internal/model"
	"github.com/stacklight/identity-server-go/internal/repository"
)

type countingRefreshRepo struct {
	calls int64
}

func (m *countingRefreshRepo) FindByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	return nil, nil
}

func (m *countingRefreshRepo) Create(ctx context.Context, params model.CreateRefreshTokenParams) (*model.RefreshToken, error) {
	return nil, nil
}

func (m *countingRefreshRepo) Replace(ctx context.Context, oldToken, newToken string) (int64, error) {
	return 0, nil
}

func (m *countingRefreshRepo) DeleteExpired(ctx context.Context) (int64, error) {
	atomic.AddInt64(&m.calls, 1)
	return 2, nil
}

func (m *countingRefreshRepo) WithTx(tx *sqlx.Tx) repository.RefreshTokenRepository {
	return m
}

type countingResetRepo struct {
	calls int64
}

func (m *countingResetRepo) FindByUserID(ctx context.Context, userID int64) (*model.PasswordReset, error) {
	return nil, nil
}

func (m *countingResetRepo) FindByCode(ctx context.Context, code string) (*model.PasswordReset, error) {
	return nil, nil
}

func (m *countingResetRepo) Create(ctx context.Context, params model.CreatePasswordResetParams) (*model.PasswordReset, error) {
	return nil, nil
}

func (m *countingResetRepo) DeleteByUserID(ctx context.Context, userID int64) error {
	return nil
}

func (m *countingResetRepo) DeleteExpired(ctx context.Context) (int64, error) {
	atomic.AddInt64(&m.calls, 1)
	return 1, nil
}

func (m *countingResetRepo) WithTx(tx *sqlx.Tx) repository.PasswordResetRepository {
	return m
}

func TestSweepJob(t *testing.T) {
	t.Run("sweeps immediately on start and stops cleanly", func(t *testing.T) {
		refresh := &countingRefreshRepo{}
		resets := &countingResetRepo{}

		job := NewSweepJob(refresh, resets, time.Hour)
		job.Start()

		assert.Eventually(t, func() bool {
			return atomic.LoadInt64(&refresh.calls) >= 1 && atomic.LoadInt64(&resets.calls) >= 1
		}, time.Second, 10*time.Millisecond)

		job.Stop()
	})

	t.Run("sweeps again on each tick", func(t *testing.T) {
		refresh := &countingRefreshRepo{}
		resets := &countingResetRepo{}

		job := NewSweepJob(refresh, resets, 20*time.Millisecond)
		job.Start()
		defer job.Stop()

		assert.Eventually(t, func() bool {
			return atomic.LoadInt64(&refresh.calls) >= 3
		}, time.Second, 10*time.Millisecond)
	})
}
