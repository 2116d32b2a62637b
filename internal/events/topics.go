package events

// Topic constants for domain events emitted by the platform.
const (
	TopicInquiryCreated   = "inquiry.created"
	TopicPriceUpdated     = "price.updated"
	TopicReferenceCreated = "reference.created"
	TopicReferenceRemoved = "reference.removed"
	TopicSupplierSynced   = "supplier.synced"
)

// DefaultTopics returns the canonical list of emitted topics.
func DefaultTopics() []string {
	return []string{
		TopicInquiryCreated,
		TopicPriceUpdated,
		TopicReferenceCreated,
		TopicReferenceRemoved,
		TopicSupplierSynced,
	}
}
