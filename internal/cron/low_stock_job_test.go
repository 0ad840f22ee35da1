package cron

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/internal/inventory"
	"github.com/digitos-team/masala-software/pkg/db/dbtest"
	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/logger"
	"github.com/digitos-team/masala-software/pkg/outbox"
)

func TestLowStockJobEmitsOncePerEntry(t *testing.T) {
	client, conn := dbtest.OpenClient(t, "cron_low_stock")
	stock, err := inventory.NewService(conn)
	require.NoError(t, err)

	low := &models.Product{ID: uuid.New(), Name: "Kasuri Methi", Unit: "pack", Stock: 2, MinStockAlert: 5}
	fine := &models.Product{ID: uuid.New(), Name: "Ajwain", Unit: "pack", Stock: 20, MinStockAlert: 5}
	require.NoError(t, conn.Create(low).Error)
	require.NoError(t, conn.Create(fine).Error)
	owner := uuid.New()
	require.NoError(t, stock.ReceiveDelivery(context.Background(), conn, owner, fine.ID, 3))

	job, err := NewLowStockJob(LowStockJobParams{
		Logger:  logger.Nop(),
		DB:      client,
		Scanner: stock,
		Outbox:  outbox.NewService(outbox.NewRepository(conn), logger.Nop()),
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	require.NoError(t, job.Run(context.Background()))

	var events []models.OutboxEvent
	require.NoError(t, conn.Where("event_type = ?", enums.EventLowStock).Find(&events).Error)
	require.Len(t, events, 2)

	ids := []uuid.UUID{events[0].AggregateID, events[1].AggregateID}
	assert.Contains(t, ids, low.ID)
	assert.NotContains(t, ids, fine.ID)
}

func TestLowStockJobCollectsEmitErrors(t *testing.T) {
	report := &inventory.LowStockReport{
		Products: []models.Product{
			{ID: uuid.New(), Name: "a", Stock: 0, MinStockAlert: 1},
			{ID: uuid.New(), Name: "b", Stock: 0, MinStockAlert: 1},
		},
	}
	emitter := &failingEmitter{err: errors.New("outbox down")}
	job, err := NewLowStockJob(LowStockJobParams{
		Logger:  logger.Nop(),
		DB:      passthroughTx{},
		Scanner: staticScanner{report: report},
		Outbox:  emitter,
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, emitter.calls)
	assert.Contains(t, err.Error(), "outbox down")
}

type staticScanner struct {
	report *inventory.LowStockReport
}

func (s staticScanner) LowStock(context.Context) (*inventory.LowStockReport, error) {
	return s.report, nil
}

type failingEmitter struct {
	err   error
	calls int
}

func (f *failingEmitter) EmitIfNotPending(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (bool, error) {
	f.calls++
	return false, f.err
}
