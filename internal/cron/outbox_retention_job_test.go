package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/pkg/logger"
)

func TestOutboxRetentionJobUsesRetentionWindow(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	pruner := &fakeOutboxPruner{deleted: 7}
	job := newOutboxRetentionJob(t, pruner, OutboxRetentionJobParams{
		Retention:        48 * time.Hour,
		TerminalAttempts: 3,
		Clock:            func() time.Time { return now },
	})

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if want := now.Add(-48 * time.Hour); !pruner.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, pruner.cutoff)
	}
	if pruner.minAttempts != 3 {
		t.Fatalf("expected min attempts 3, got %d", pruner.minAttempts)
	}
}

func TestOutboxRetentionJobDefaults(t *testing.T) {
	pruner := &fakeOutboxPruner{}
	job := newOutboxRetentionJob(t, pruner, OutboxRetentionJobParams{})
	if job.retention != defaultOutboxRetention || job.terminal != defaultTerminalAttempts {
		t.Fatalf("unexpected defaults: %s %d", job.retention, job.terminal)
	}
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job := newOutboxRetentionJob(t, &fakeOutboxPruner{err: errors.New("boom")}, OutboxRetentionJobParams{})
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newOutboxRetentionJob(t *testing.T, pruner *fakeOutboxPruner, params OutboxRetentionJobParams) *outboxRetentionJob {
	t.Helper()
	params.Logger = logger.Nop()
	params.DB = passthroughTx{}
	params.Pruner = pruner
	jobIface, err := NewOutboxRetentionJob(params)
	if err != nil {
		t.Fatalf("NewOutboxRetentionJob: %v", err)
	}
	job, ok := jobIface.(*outboxRetentionJob)
	if !ok {
		t.Fatalf("expected outboxRetentionJob, got %T", jobIface)
	}
	return job
}

type fakeOutboxPruner struct {
	cutoff      time.Time
	minAttempts int
	deleted     int64
	err         error
}

func (f *fakeOutboxPruner) DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error) {
	f.cutoff = cutoff
	f.minAttempts = minAttemptCount
	return f.deleted, f.err
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
