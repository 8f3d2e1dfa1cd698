package events

// Topic constants for domain events emitted by the engine.
const (
	TopicOrderCreated       = "order.created"
	TopicOrderCancelled     = "order.cancelled"
	TopicOrderDelivered     = "order.delivered"
	TopicOrderCompleted     = "order.completed"
	TopicPromoReserved      = "promo.reserved"
	TopicPromoReleased      = "promo.released"
	TopicSettlementRecorded = "settlement.recorded"
	TopicConstructCreated   = "construct.created"
	TopicConstructUpdated   = "construct.updated"
	TopicCouponCreated      = "coupon.created"
	TopicCouponUpdated      = "coupon.updated"
)

// DefaultTopics returns the canonical list of topics downstream consumers
// may subscribe to.
func DefaultTopics() []string {
	return []string{
		TopicOrderCreated,
		TopicOrderCancelled,
		TopicOrderDelivered,
		TopicOrderCompleted,
		TopicPromoReserved,
		TopicPromoReleased,
		TopicSettlementRecorded,
		TopicConstructCreated,
		TopicConstructUpdated,
		TopicCouponCreated,
		TopicCouponUpdated,
	}
}
