package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	"github.com/digitos-team/masala-software/pkg/money"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// NextSequence bumps and returns the counter for year. Concurrent callers
// serialise on the counter row, so values are unique and gap-free per commit.
func (r *repository) NextSequence(ctx context.Context, year int) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO order_sequences (year, last_value)
		VALUES (?, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = order_sequences.last_value + 1
		RETURNING last_value
	`, year).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ExistsByOrderNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Where("order_number = ?", number).Count(&count).Error
	return count > 0, err
}

func (r *repository) ExistsByInvoiceNumber(ctx context.Context, invoice string, excludeID uuid.UUID) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Order{}).Where("invoice_number = ?", invoice)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *repository) FindProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	out := make(map[uuid.UUID]*models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

// UpdateWhereStatus applies updates only if the row still has the expected
// status, which makes concurrent transitions of one order mutually exclusive.
func (r *repository) UpdateWhereStatus(ctx context.Context, id uuid.UUID, expected enums.OrderStatus, updates map[string]any) (bool, error) {
	updates["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ReplaceItems(ctx context.Context, orderID uuid.UUID, items []models.OrderLineItem) error {
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&models.OrderLineItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].OrderID = orderID
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// DeleteWhereStatus removes the order and its items if it still has the
// expected status. Items are deleted explicitly since sqlite does not
// enforce the cascade.
func (r *repository) DeleteWhereStatus(ctx context.Context, id uuid.UUID, expected enums.OrderStatus) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND status = ?", id, expected).Delete(&models.Order{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Delete(&models.OrderLineItem{}).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (r *repository) HasPayments(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).Where("order_id = ?", orderID).Count(&count).Error
	return count > 0, err
}

func (r *repository) List(ctx context.Context, actor Actor, params ListOrdersParams) ([]models.Order, int64, error) {
	query := ScopeQuery(r.db.WithContext(ctx).Model(&models.Order{}), actor)
	if params.Status != nil {
		query = query.Where("orders.status = ?", *params.Status)
	}
	if params.From != nil {
		query = query.Where("orders.created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("orders.created_at <= ?", *params.To)
	}
	if params.DistributorID != nil {
		query = query.Where("orders.distributor_id = ?", *params.DistributorID)
	}
	if params.SubDistributorID != nil {
		query = query.Where("orders.sub_distributor_id = ?", *params.SubDistributorID)
	}
	if params.PlacedBy != nil {
		query = query.Where("orders.placed_by = ?", *params.PlacedBy)
	}
	if term := strings.TrimSpace(params.Search); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("(LOWER(orders.order_number) LIKE ? OR LOWER(orders.invoice_number) LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := params.Params.Normalize(sortableColumns, "created_at")
	var rows []models.Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("orders." + page.OrderClause()).
		Order("orders.id ASC").
		Limit(page.Limit).
		Offset(page.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) ListByPlacedBy(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("placed_by = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) Revenue(ctx context.Context, from, to *time.Time) (RevenueAggregate, error) {
	var agg RevenueAggregate
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("COALESCE(SUM(grand_total_cents), 0) AS total, COUNT(*) AS count").
		Where("status NOT IN ?", excludedFromRevenue())
	if from != nil {
		query = query.Where("created_at >= ?", *from)
	}
	if to != nil {
		query = query.Where("created_at <= ?", *to)
	}
	err := query.Scan(&agg).Error
	return agg, err
}

func (r *repository) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	type row struct {
		ProductID    uuid.UUID
		ProductName  string
		QuantitySold int64
		Revenue      int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Table("order_line_items AS li").
		Select("li.product_id AS product_id, MAX(li.name) AS product_name, SUM(li.quantity) AS quantity_sold, SUM(li.line_total_cents) AS revenue").
		Joins("JOIN orders ON orders.id = li.order_id").
		Where("orders.status NOT IN ?", excludedFromRevenue()).
		Group("li.product_id").
		Order("quantity_sold DESC").
		Order("li.product_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]TopProduct, 0, len(rows))
	for _, r := range rows {
		out = append(out, TopProduct{
			ProductID:         r.ProductID,
			ProductName:       r.ProductName,
			TotalQuantitySold: r.QuantitySold,
			TotalRevenue:      money.Cents(r.Revenue),
		})
	}
	return out, nil
}

func excludedFromRevenue() []enums.OrderStatus {
	var out []enums.OrderStatus
	for _, status := range enums.OrderStatuses() {
		if !status.CountsAsRevenue() {
			out = append(out, status)
		}
	}
	return out
}
