package orders

const (
	TopicOrderCompleted     = "order.completed"
	TopicOrderCancelled     = "order.cancelled"
	TopicDeliveryJobUpdated = "delivery.job.updated"
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
