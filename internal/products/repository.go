package product

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/pagination"
)

// ProductRepository defines the catalog reads the views need.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	List(ctx context.Context, params ListProductsParams) ([]models.Product, int64, error)
}

// Repository reads catalog rows. Catalog writes happen elsewhere.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// List pages through the catalog. params must already be normalized.
func (r *Repository) List(ctx context.Context, params ListProductsParams) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})
	if term := strings.TrimSpace(params.Search); term != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(term)+"%")
	}
	if params.LowStockOnly {
		query = query.Where("min_stock_alert > 0 AND stock <= min_stock_alert")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Product
	err := query.
		Order(params.OrderClause()).
		Order("id ASC").
		Limit(pagination.NormalizeLimit(params.Limit)).
		Offset(params.Offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

var _ ProductRepository = (*Repository)(nil)
