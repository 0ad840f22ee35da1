package outbox

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/digitos-team/masala-software/pkg/db/models"
)

// DLQRepository writes outbox_dlq rows. Entries are inserted in the same
// transaction that marks the source row terminal.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.EventID == uuid.Nil {
		return errors.New("dead letter needs the source event id")
	}
	if !entry.ErrorReason.IsValid() {
		return fmt.Errorf("unknown dead letter reason %q", entry.ErrorReason)
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.FailedAt.IsZero() {
		entry.FailedAt = time.Now().UTC()
	}
	if entry.ErrorMessage != nil {
		entry.ErrorMessage = clip(*entry.ErrorMessage)
	}
	return tx.Create(&entry).Error
}
