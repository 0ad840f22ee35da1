package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/pkg/logger"
)

const (
	defaultOutboxRetention  = 30 * 24 * time.Hour
	defaultTerminalAttempts = 10
)

// OutboxRetentionJobParams configure pruning. TerminalAttempts should match
// the publisher's MaxAttempts; rows at or above it are never retried.
type OutboxRetentionJobParams struct {
	Logger           *logger.Logger
	DB               txRunner
	Pruner           outboxPruner
	Retention        time.Duration
	TerminalAttempts int
	Clock            func() time.Time
}

type outboxPruner interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Pruner == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		pruner:    params.Pruner,
		retention: params.Retention,
		terminal:  params.TerminalAttempts,
		now:       params.Clock,
	}
	if job.retention <= 0 {
		job.retention = defaultOutboxRetention
	}
	if job.terminal <= 0 {
		job.terminal = defaultTerminalAttempts
	}
	if job.now == nil {
		job.now = time.Now
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	pruner    outboxPruner
	retention time.Duration
	terminal  int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		n, err := j.pruner.DeletePublishedBefore(ctx, tx, cutoff, j.terminal)
		deleted = n
		return err
	})
	if err != nil {
		return fmt.Errorf("prune outbox: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "outbox pruned")
	return nil
}
