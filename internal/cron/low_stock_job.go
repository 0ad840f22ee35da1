package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/internal/inventory"
	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/outbox"
	"github.com/digitos-team/masala-software/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type lowStockScanner interface {
	LowStock(ctx context.Context) (*inventory.LowStockReport, error)
}

type pendingEmitter interface {
	EmitIfNotPending(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (bool, error)
}

type LowStockJobParams struct {
	Logger  *logger.Logger
	DB      txRunner
	Scanner lowStockScanner
	Outbox  pendingEmitter
}

// NewLowStockJob builds the job that raises inventory.low_stock events for
// catalog products and owner ledger entries at or under their alert level.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Scanner == nil {
		return nil, fmt.Errorf("stock scanner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &lowStockJob{
		logg:    params.Logger,
		db:      params.DB,
		scanner: params.Scanner,
		outbox:  params.Outbox,
	}, nil
}

type lowStockJob struct {
	logg    *logger.Logger
	db      txRunner
	scanner lowStockScanner
	outbox  pendingEmitter
}

func (j *lowStockJob) Name() string { return "low-stock-alert" }

func (j *lowStockJob) Run(ctx context.Context) error {
	report, err := j.scanner.LowStock(ctx)
	if err != nil {
		return fmt.Errorf("scan low stock: %w", err)
	}

	var errs error
	emitted := 0
	for _, product := range report.Products {
		ok, err := j.alert(ctx, product.ID, payloads.LowStockEvent{
			ProductID:     product.ID,
			Name:          product.Name,
			Stock:         product.Stock,
			MinStockAlert: product.MinStockAlert,
		})
		errs = multierr.Append(errs, err)
		if ok {
			emitted++
		}
	}
	for _, entry := range report.Owners {
		owner := entry.OwnerID
		ok, err := j.alert(ctx, entry.ID, payloads.LowStockEvent{
			ProductID:     entry.ProductID,
			OwnerID:       &owner,
			Name:          entry.Name,
			Stock:         entry.Stock,
			MinStockAlert: entry.MinStockAlert,
		})
		errs = multierr.Append(errs, err)
		if ok {
			emitted++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"low_products": len(report.Products),
		"low_owners":   len(report.Owners),
		"emitted":      emitted,
	})
	j.logg.Info(logCtx, "low stock scan complete")
	return errs
}

// alert queues one event per aggregate; catalog rows use the product id and
// ledger rows their own entry id so every owner is tracked separately.
func (j *lowStockJob) alert(ctx context.Context, aggregateID uuid.UUID, event payloads.LowStockEvent) (bool, error) {
	fields := map[string]any{
		"product_id": event.ProductID.String(),
		"stock":      event.Stock,
		"threshold":  event.MinStockAlert,
	}
	if event.OwnerID != nil {
		fields["owner_id"] = event.OwnerID.String()
	}
	j.logg.Warn(j.logg.WithFields(ctx, fields), "stock at or below alert level")

	var emitted bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := j.outbox.EmitIfNotPending(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLowStock,
			AggregateType: enums.AggregateProduct,
			AggregateID:   aggregateID,
			Data:          event,
		})
		emitted = ok
		return err
	})
	if err != nil {
		return false, fmt.Errorf("emit low stock for %s: %w", aggregateID, err)
	}
	return emitted, nil
}
