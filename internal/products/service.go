package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/internal/orders"
	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/pagination"
	"github.com/digitos-team/masala-software/pkg/visibility"
)

// Service exposes role-projected catalog reads.
type Service interface {
	Get(ctx context.Context, actor orders.Actor, id uuid.UUID) (*visibility.ProductView, error)
	List(ctx context.Context, actor orders.Actor, params ListProductsParams) (*ProductList, error)
	MyStock(ctx context.Context, actor orders.Actor) (*MyStock, error)
}

type stockLedger interface {
	ListOwnerStock(ctx context.Context, ownerID uuid.UUID) ([]models.OwnerStock, error)
}

type service struct {
	repo  ProductRepository
	stock stockLedger
}

// NewService constructs a product service instance.
func NewService(repo ProductRepository, stock stockLedger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	return &service{repo: repo, stock: stock}, nil
}

func (s *service) Get(ctx context.Context, actor orders.Actor, id uuid.UUID) (*visibility.ProductView, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	view := visibility.ProjectProduct(*product, actor.Role)
	return &view, nil
}

func (s *service) List(ctx context.Context, actor orders.Actor, params ListProductsParams) (*ProductList, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if params.SortBy == "" {
		params.SortBy = "name"
		params.SortOrder = pagination.SortAsc
	}
	params.Params = params.Params.Normalize(sortableColumns, "name")

	rows, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return &ProductList{
		Items:      visibility.ProjectProducts(rows, actor.Role),
		Pagination: pagination.NewMeta(params.Params, total),
	}, nil
}

func (s *service) MyStock(ctx context.Context, actor orders.Actor) (*MyStock, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	rows, err := s.stock.ListOwnerStock(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	out := &MyStock{OwnerID: actor.UserID, Items: make([]StockEntryDTO, 0, len(rows))}
	for _, row := range rows {
		out.Items = append(out.Items, stockEntry(row, actor.Role == enums.RoleDistributor))
	}
	return out, nil
}
