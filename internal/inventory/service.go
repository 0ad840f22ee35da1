package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/digitos-team/masala-software/pkg/db/models"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
)

// Stock is the catalog collaborator order operations mutate. Every method
// runs on the caller's transaction.
type Stock interface {
	Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	Increment(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
	ReceiveDelivery(ctx context.Context, tx *gorm.DB, ownerID, productID uuid.UUID, qty int) error
	ReleaseDelivery(ctx context.Context, tx *gorm.DB, ownerID, productID uuid.UUID, qty int) error
}

// Service implements Stock over the products and owner_stock tables.
type Service struct {
	db *gorm.DB
}

// ShortageDetails is attached to INSUFFICIENT_STOCK errors.
type ShortageDetails struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name,omitempty"`
	Available int       `json:"available"`
	Requested int       `json:"requested"`
}

func NewService(db *gorm.DB) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	return &Service{db: db}, nil
}

// Decrement removes qty units from the product's stock. The update is
// conditional so two writers can never drive stock below zero.
func (s *Service) Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock decrement")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?
	`, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "decrement stock")
	}
	if res.RowsAffected == 1 {
		return nil
	}

	product, err := loadProduct(ctx, tx, productID)
	if err != nil {
		return err
	}
	return Shortage(product, qty)
}

// Increment returns qty units to the product's stock.
func (s *Service) Increment(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock increment")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "increment stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", productID)
	}
	return nil
}

// ReceiveDelivery credits the owner's ledger entry for an upstream product,
// creating it from the catalog entry on first delivery.
func (s *Service) ReceiveDelivery(ctx context.Context, tx *gorm.DB, ownerID, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for delivery")
	}
	if ownerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock owner required")
	}

	product, err := loadProduct(ctx, tx, productID)
	if err != nil {
		return err
	}

	entry := models.OwnerStock{
		ID:                    uuid.New(),
		OwnerID:               ownerID,
		ProductID:             product.ID,
		Name:                  product.Name,
		Unit:                  product.Unit,
		DistributorPriceCents: product.DistributorPriceCents,
		RetailerPriceCents:    product.RetailerPriceCents,
		TaxPercentage:         product.TaxPercentage,
		Stock:                 qty,
		MinStockAlert:         product.MinStockAlert,
	}
	err = tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "owner_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"stock":      gorm.Expr("owner_stock.stock + ?", qty),
				"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
			}),
		}).
		Create(&entry).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit owner stock")
	}
	return nil
}

// ReleaseDelivery debits the owner's ledger after a return. The entry never
// goes negative; units already sold on are not clawed back.
func (s *Service) ReleaseDelivery(ctx context.Context, tx *gorm.DB, ownerID, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for delivery release")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE owner_stock
		SET stock = CASE WHEN stock >= ? THEN stock - ? ELSE 0 END,
			updated_at = CURRENT_TIMESTAMP
		WHERE owner_id = ? AND product_id = ?
	`, qty, qty, ownerID, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "debit owner stock")
	}
	return nil
}

// ListOwnerStock returns the owner's ledger, alphabetised by product name.
func (s *Service) ListOwnerStock(ctx context.Context, ownerID uuid.UUID) ([]models.OwnerStock, error) {
	var rows []models.OwnerStock
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list owner stock")
	}
	return rows, nil
}

// LowStockReport lists catalog and ledger entries at or below their alert threshold.
type LowStockReport struct {
	Products []models.Product
	Owners   []models.OwnerStock
}

// LowStock scans both stock tables. Entries with a zero threshold never alert.
func (s *Service) LowStock(ctx context.Context) (*LowStockReport, error) {
	report := &LowStockReport{}
	err := s.db.WithContext(ctx).
		Where("min_stock_alert > 0 AND stock <= min_stock_alert").
		Order("stock ASC").
		Find(&report.Products).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan low catalog stock")
	}
	err = s.db.WithContext(ctx).
		Where("min_stock_alert > 0 AND stock <= min_stock_alert").
		Order("stock ASC").
		Find(&report.Owners).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "scan low owner stock")
	}
	return report, nil
}

// Shortage builds the INSUFFICIENT_STOCK error for a product.
func Shortage(product *models.Product, requested int) error {
	return pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
		"insufficient stock for product %s. Available: %d, Requested: %d", product.Name, product.Stock, requested).
		WithDetails(ShortageDetails{
			ProductID: product.ID,
			Name:      product.Name,
			Available: product.Stock,
			Requested: requested,
		})
}

func loadProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := tx.WithContext(ctx).Where("id = ?", productID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", productID)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}
