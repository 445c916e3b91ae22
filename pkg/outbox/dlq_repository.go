package outbox

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/pagination"
)

const maxDLQErrorLen = 1024

// DLQRepository stores events the relay gave up on.
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
	if entry.ErrorMessage != nil && len(*entry.ErrorMessage) > maxDLQErrorLen {
		msg := (*entry.ErrorMessage)[:maxDLQErrorLen]
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// FindByEventID returns nil without error when the event was never dead-lettered.
func (r *DLQRepository) FindByEventID(ctx context.Context, eventID uuid.UUID) (*models.OutboxDLQ, error) {
	var row models.OutboxDLQ
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// List returns the most recent failures first.
func (r *DLQRepository) List(ctx context.Context, limit int) ([]models.OutboxDLQ, error) {
	var rows []models.OutboxDLQ
	err := r.db.WithContext(ctx).
		Order("failed_at DESC").
		Limit(pagination.NormalizeLimit(limit)).
		Find(&rows).Error
	return rows, err
}

// Replay puts a dead-lettered event back in the outbox with a fresh attempt
// budget and drops the DLQ entry. The event keeps its id so consumers still
// deduplicate it. It reports false when nothing was dead-lettered under eventID.
func (r *DLQRepository) Replay(ctx context.Context, eventID uuid.UUID) (bool, error) {
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.OutboxDLQ
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("event_id = ?", eventID).Take(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		event := models.OutboxEvent{
			ID:            entry.EventID,
			EventType:     entry.EventType,
			AggregateType: entry.AggregateType,
			AggregateID:   entry.AggregateID,
			Payload:       entry.Payload,
		}
		requeue := clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"attempt_count":   0,
				"next_attempt_at": nil,
				"published_at":    nil,
				"last_error":      nil,
			}),
		}
		if err := tx.Clauses(requeue).Create(&event).Error; err != nil {
			return err
		}
		return tx.Delete(&entry).Error
	})
	return found, err
}
