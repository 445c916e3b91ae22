package enums

// OutboxAggregateType names what an outbox row is about.
type OutboxAggregateType string

const (
	AggregateAuction      OutboxAggregateType = "auction"
	AggregateNotification OutboxAggregateType = "notification"
)

var aggregateTypes = values[OutboxAggregateType]{AggregateAuction, AggregateNotification}

func (a OutboxAggregateType) IsValid() bool { return aggregateTypes.has(a) }

func ParseOutboxAggregateType(raw string) (OutboxAggregateType, error) {
	return aggregateTypes.parse("aggregate type", raw)
}

type OutboxEventType string

const (
	EventBidPlaced             OutboxEventType = "bid_placed"
	EventAuctionExtended       OutboxEventType = "auction_extended"
	EventAuctionFinalized      OutboxEventType = "auction_finalized"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var outboxEventTypes = values[OutboxEventType]{
	EventBidPlaced,
	EventAuctionExtended,
	EventAuctionFinalized,
	EventNotificationRequested,
}

func (e OutboxEventType) IsValid() bool { return outboxEventTypes.has(e) }

// IsAuctionFact reports whether the event describes auction state and feeds analytics.
func (e OutboxEventType) IsAuctionFact() bool {
	return e != EventNotificationRequested && e.IsValid()
}

func ParseOutboxEventType(raw string) (OutboxEventType, error) {
	return outboxEventTypes.parse("event type", raw)
}

// OutboxDLQErrorReason records why a row left the relay for the dead-letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
