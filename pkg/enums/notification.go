package enums

type NotificationType string

const (
	NotificationTypeSystemAnnouncement NotificationType = "system_announcement"
	NotificationTypeBidPlaced          NotificationType = "bid_placed"
	NotificationTypeOutbid             NotificationType = "outbid"
	NotificationTypeAuctionExtended    NotificationType = "auction_extended"
	NotificationTypeAuctionWon         NotificationType = "auction_won"
	NotificationTypeAuctionSold        NotificationType = "auction_sold"
	NotificationTypeAuctionLost        NotificationType = "auction_lost"
	NotificationTypeAuctionNoBids      NotificationType = "auction_ended_no_bids"
)

var notificationTypes = values[NotificationType]{
	NotificationTypeSystemAnnouncement,
	NotificationTypeBidPlaced,
	NotificationTypeOutbid,
	NotificationTypeAuctionExtended,
	NotificationTypeAuctionWon,
	NotificationTypeAuctionSold,
	NotificationTypeAuctionLost,
	NotificationTypeAuctionNoBids,
}

func (n NotificationType) IsValid() bool { return notificationTypes.has(n) }

func ParseNotificationType(raw string) (NotificationType, error) {
	return notificationTypes.parse("notification type", raw)
}

type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityNormal NotificationPriority = "normal"
	NotificationPriorityHigh   NotificationPriority = "high"
	NotificationPriorityUrgent NotificationPriority = "urgent"
)

var notificationPriorities = values[NotificationPriority]{
	NotificationPriorityLow,
	NotificationPriorityNormal,
	NotificationPriorityHigh,
	NotificationPriorityUrgent,
}

func (p NotificationPriority) IsValid() bool { return notificationPriorities.has(p) }
