package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/internal/inventory"
	"github.com/digitos-team/masala-software/pkg/db/models"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
)

type productQuantity struct {
	productID uuid.UUID
	quantity  int
}

// aggregateQuantities sums quantities per product, keeping first-seen order
// so stock rows are always touched in a stable sequence.
func aggregateQuantities(lines []pricedLine) []productQuantity {
	index := make(map[uuid.UUID]int, len(lines))
	out := make([]productQuantity, 0, len(lines))
	for _, line := range lines {
		if i, ok := index[line.ProductID]; ok {
			out[i].quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(out)
		out = append(out, productQuantity{productID: line.ProductID, quantity: line.Quantity})
	}
	return out
}

// checkAvailability validates every product before any stock is touched.
func checkAvailability(quantities []productQuantity, products map[uuid.UUID]*models.Product) error {
	for _, q := range quantities {
		product, ok := products[q.productID]
		if !ok {
			return pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", q.productID)
		}
		if product.Stock < q.quantity {
			return inventory.Shortage(product, q.quantity)
		}
	}
	return nil
}

func (s *service) reserveStock(ctx context.Context, tx *gorm.DB, quantities []productQuantity) error {
	for _, q := range quantities {
		if err := s.stock.Decrement(ctx, tx, q.productID, q.quantity); err != nil {
			return err
		}
	}
	return nil
}

// restoreStock puts every line item back on the catalog. Products that have
// since disappeared from the catalog are skipped.
func (s *service) restoreStock(ctx context.Context, tx *gorm.DB, items []models.OrderLineItem) error {
	for _, q := range aggregateQuantities(linesFromSnapshot(items)) {
		if err := s.stock.Increment(ctx, tx, q.productID, q.quantity); err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
				s.logg.Warn(s.logg.WithField(ctx, "product_id", q.productID.String()), "product missing while restoring stock")
				continue
			}
			return err
		}
	}
	return nil
}

func (s *service) creditRecipient(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	recipient := order.Recipient()
	for _, q := range aggregateQuantities(linesFromSnapshot(order.Items)) {
		if err := s.stock.ReceiveDelivery(ctx, tx, recipient, q.productID, q.quantity); err != nil {
			return err
		}
	}
	return nil
}

func (s *service) debitRecipient(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	recipient := order.Recipient()
	for _, q := range aggregateQuantities(linesFromSnapshot(order.Items)) {
		if err := s.stock.ReleaseDelivery(ctx, tx, recipient, q.productID, q.quantity); err != nil {
			return err
		}
	}
	return nil
}
