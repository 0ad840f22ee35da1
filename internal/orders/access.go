package orders

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
)

// Actor is the verified caller every operation is scoped by.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == enums.RoleAdmin
}

// Validate rejects anonymous or unknown-role callers.
func (a Actor) Validate() error {
	if a.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !a.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "role missing")
	}
	return nil
}

// IsParticipant reports whether userID placed, supplies, or sub-supplies the order.
func IsParticipant(order *models.Order, userID uuid.UUID) bool {
	if order == nil || userID == uuid.Nil {
		return false
	}
	return order.PlacedBy == userID || IsSupplier(order, userID)
}

// IsSupplier reports whether userID is the order's distributor or sub-distributor.
func IsSupplier(order *models.Order, userID uuid.UUID) bool {
	if order == nil || userID == uuid.Nil {
		return false
	}
	if order.DistributorID != nil && *order.DistributorID == userID {
		return true
	}
	return order.SubDistributorID != nil && *order.SubDistributorID == userID
}

func CanView(actor Actor, order *models.Order) bool {
	return actor.IsAdmin() || IsParticipant(order, actor.UserID)
}

func CanEdit(actor Actor, order *models.Order) bool {
	return actor.IsAdmin() || IsParticipant(order, actor.UserID)
}

// CanChangeStatus is limited to admins and the supplying side of the order.
func CanChangeStatus(actor Actor, order *models.Order) bool {
	return actor.IsAdmin() || IsSupplier(order, actor.UserID)
}

// ScopeQuery restricts an orders query to rows the actor participates in.
// Admin queries pass through unchanged.
func ScopeQuery(query *gorm.DB, actor Actor) *gorm.DB {
	if actor.IsAdmin() {
		return query
	}
	return query.Where(
		"(orders.placed_by = ? OR orders.distributor_id = ? OR orders.sub_distributor_id = ?)",
		actor.UserID, actor.UserID, actor.UserID,
	)
}

// ScopedOrderIDs returns a subquery of the order ids visible to the actor,
// for filtering tables keyed by order_id.
func ScopedOrderIDs(db *gorm.DB, actor Actor) *gorm.DB {
	return ScopeQuery(db.Session(&gorm.Session{NewDB: true}).Model(&models.Order{}).Select("orders.id"), actor)
}
