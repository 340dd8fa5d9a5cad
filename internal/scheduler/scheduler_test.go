package scheduler

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vodarr/vodarr/internal/config"
	"github.com/vodarr/vodarr/internal/models"
	"github.com/vodarr/vodarr/internal/repository"
	"github.com/vodarr/vodarr/internal/syncer"
)

func newTestSyncer(t *testing.T) *syncer.Syncer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Video{},
		&models.FavoriteSource{},
		&models.CollectionSource{},
		&models.SubmissionSource{},
		&models.WatchLaterSource{},
	))

	return syncer.New(
		db, nil,
		repository.NewVideoRepository(db),
		repository.NewSourceRepository(db),
		nil,
		config.SyncConfig{FanOut: 1, DownloadWorkers: 1},
		config.StorageConfig{BaseDir: t.TempDir()},
		slog.New(slog.DiscardHandler),
	)
}

func TestNew_RejectsInvalidSchedule(t *testing.T) {
	_, err := New(newTestSyncer(t), config.SyncConfig{Schedule: "not a cron"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sync.schedule")
}

func TestNew_AcceptsValidSchedule(t *testing.T) {
	sched, err := New(newTestSyncer(t), config.SyncConfig{Schedule: "*/15 * * * *"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, sched.schedule)
}

func TestUntilNext_PollInterval(t *testing.T) {
	sched, err := New(newTestSyncer(t), config.SyncConfig{PollInterval: time.Hour}, nil)
	require.NoError(t, err)

	wait := sched.untilNext()
	assert.InDelta(t, time.Hour, wait, float64(time.Second))
	assert.WithinDuration(t, time.Now().Add(time.Hour), sched.NextRun(), time.Second)
}

func TestUntilNext_CronSchedule(t *testing.T) {
	sched, err := New(newTestSyncer(t), config.SyncConfig{Schedule: "0 * * * *"}, nil)
	require.NoError(t, err)

	wait := sched.untilNext()
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, time.Hour)

	next := sched.NextRun()
	assert.Equal(t, 0, next.Minute())
}

func TestStartRunsImmediateCycle(t *testing.T) {
	s := newTestSyncer(t)
	sched, err := New(s, config.SyncConfig{PollInterval: time.Hour}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	require.NoError(t, sched.Start(context.Background()))
	defer sched.Stop()

	assert.Eventually(t, func() bool {
		return s.LastRun() != nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Error(t, sched.Start(context.Background()))
}

func TestStopIsIdempotentAfterStart(t *testing.T) {
	s := newTestSyncer(t)
	sched, err := New(s, config.SyncConfig{PollInterval: time.Hour}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	require.NoError(t, sched.Start(context.Background()))
	sched.Stop()

	// A stopped scheduler can be started again.
	require.NoError(t, sched.Start(context.Background()))
	sched.Stop()
}
