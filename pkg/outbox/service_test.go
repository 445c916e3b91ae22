package outbox

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/auctionhouse-backend/pkg/db/dbtest"
	"github.com/angelmondragon/auctionhouse-backend/pkg/db/models"
	"github.com/angelmondragon/auctionhouse-backend/pkg/enums"
	"github.com/angelmondragon/auctionhouse-backend/pkg/logger"
)

func TestEmitWritesEnvelope(t *testing.T) {
	conn := dbtest.Open(t, &models.OutboxEvent{})
	svc := NewService(NewRepository(conn), logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	auctionID := uuid.New()
	occurred := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventAuctionExtended,
			AggregateType: enums.AggregateAuction,
			AggregateID:   auctionID,
			Actor:         &ActorRef{Role: ActorRoleSystem},
			Data:          map[string]string{"auction_id": auctionID.String()},
			OccurredAt:    occurred,
		})
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row).Error)
	assert.Equal(t, enums.EventAuctionExtended, row.EventType)
	assert.Equal(t, auctionID, row.AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	assert.True(t, envelope.OccurredAt.Equal(occurred))
	assert.JSONEq(t, `{"auction_id":"`+auctionID.String()+`"}`, string(envelope.Data))
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	conn := dbtest.Open(t, &models.OutboxEvent{})
	svc := NewService(NewRepository(conn), nil)

	_ = conn.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventBidPlaced,
			AggregateType: enums.AggregateAuction,
			AggregateID:   uuid.New(),
			Data:          struct{}{},
		}))
		return gorm.ErrInvalidTransaction
	})

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitRejectsInvalidEvents(t *testing.T) {
	conn := dbtest.Open(t, &models.OutboxEvent{})
	svc := NewService(NewRepository(conn), nil)

	ctx := context.Background()
	assert.ErrorIs(t, svc.Emit(ctx, nil, DomainEvent{}), errNoTx)
	assert.ErrorIs(t, svc.Emit(ctx, conn, DomainEvent{EventType: "nope", AggregateID: uuid.New()}), errUnknownEvent)
	assert.ErrorIs(t, svc.Emit(ctx, conn, DomainEvent{EventType: enums.EventBidPlaced}), errNoAggregateID)
	assert.Error(t, svc.Emit(ctx, conn, DomainEvent{
		EventType:   enums.EventBidPlaced,
		AggregateID: uuid.New(),
		Data:        make(chan int),
	}))

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}
