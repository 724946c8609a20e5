package orders

const (
	TopicOrderPlaced   = "flipbook.order.placed"
	TopicOrderRejected = "flipbook.order.rejected"
	TopicOrderUpdated  = "flipbook.order.updated"
)

// Partition key = order_id so every event of one order stays in sequence.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
