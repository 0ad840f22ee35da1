package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/internal/orders"
	"github.com/digitos-team/masala-software/pkg/db/dbtest"
	"github.com/digitos-team/masala-software/pkg/db/models"
	"github.com/digitos-team/masala-software/pkg/enums"
	pkgerrors "github.com/digitos-team/masala-software/pkg/errors"
	"github.com/digitos-team/masala-software/pkg/pagination"
)

func seedNotification(t *testing.T, conn *gorm.DB, recipient *uuid.UUID, createdAt time.Time) models.Notification {
	t.Helper()
	row := models.Notification{
		ID:          uuid.New(),
		RecipientID: recipient,
		EventID:     uuid.New(),
		Type:        enums.NotificationTypeOrder,
		Title:       "Order confirmed",
		Message:     "Order ORD-20261018-0001 moved from placed to confirmed.",
		CreatedAt:   createdAt,
	}
	require.NoError(t, conn.Create(&row).Error)
	return row
}

func newInbox(t *testing.T, name string) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t, name)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func TestListScopesToRecipient(t *testing.T) {
	svc, conn := newInbox(t, "inbox_scope")
	retailer := orders.Actor{UserID: uuid.New(), Role: enums.RoleRetailer}
	admin := orders.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

	seedNotification(t, conn, &retailer.UserID, base)
	newest := seedNotification(t, conn, &retailer.UserID, base.Add(time.Hour))
	seedNotification(t, conn, nil, base)
	other := uuid.New()
	seedNotification(t, conn, &other, base)

	list, err := svc.List(context.Background(), retailer, ListParams{})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, newest.ID, list.Items[0].ID, "newest first")
	assert.EqualValues(t, 2, list.Pagination.TotalCount)

	adminList, err := svc.List(context.Background(), admin, ListParams{})
	require.NoError(t, err)
	require.Len(t, adminList.Items, 1, "admins see the shared inbox")
}

func TestListPaginatesAndFiltersUnread(t *testing.T) {
	svc, conn := newInbox(t, "inbox_pages")
	actor := orders.Actor{UserID: uuid.New(), Role: enums.RoleDistributor}
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	for i := range 5 {
		seedNotification(t, conn, &actor.UserID, base.Add(time.Duration(i)*time.Minute))
	}

	page, err := svc.List(context.Background(), actor, ListParams{Params: pagination.Params{Page: 2, Limit: 2}})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasMore)

	read, err := svc.MarkAllRead(context.Background(), actor)
	require.NoError(t, err)
	assert.EqualValues(t, 5, read)

	unread, err := svc.List(context.Background(), actor, ListParams{UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread.Items)
}

func TestListFiltersByType(t *testing.T) {
	svc, conn := newInbox(t, "inbox_type")
	actor := orders.Actor{UserID: uuid.New(), Role: enums.RoleRetailer}
	base := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	seedNotification(t, conn, &actor.UserID, base)
	payment := seedNotification(t, conn, &actor.UserID, base.Add(time.Minute))
	require.NoError(t, conn.Model(&models.Notification{}).Where("id = ?", payment.ID).
		Update("type", enums.NotificationTypePayment).Error)

	list, err := svc.List(context.Background(), actor, ListParams{Type: enums.NotificationTypePayment})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, payment.ID, list.Items[0].ID)
	assert.Equal(t, enums.NotificationTypePayment, list.Items[0].Type)
}

func TestMarkReadRespectsScope(t *testing.T) {
	svc, conn := newInbox(t, "inbox_mark")
	owner := orders.Actor{UserID: uuid.New(), Role: enums.RoleRetailer}
	stranger := orders.Actor{UserID: uuid.New(), Role: enums.RoleRetailer}
	row := seedNotification(t, conn, &owner.UserID, time.Now().UTC())

	err := svc.MarkRead(context.Background(), stranger, row.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	require.NoError(t, svc.MarkRead(context.Background(), owner, row.ID))
	// repeated reads are accepted
	require.NoError(t, svc.MarkRead(context.Background(), owner, row.ID))

	list, err := svc.List(context.Background(), owner, ListParams{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.True(t, list.Items[0].Read)
}

func TestInboxRequiresActor(t *testing.T) {
	svc, _ := newInbox(t, "inbox_actor")

	_, err := svc.List(context.Background(), orders.Actor{}, ListParams{})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized))

	err = svc.MarkRead(context.Background(), orders.Actor{UserID: uuid.New(), Role: enums.RoleAdmin}, uuid.Nil)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
