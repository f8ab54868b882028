package events

// Metadata is the per-type payload of an Event. Each EventType decodes into a
// fixed variant; types without a dedicated schema use GenericMetadata.
type Metadata interface {
	metadataFor() EventType
}

type OrderStatusMetadata struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

func (OrderStatusMetadata) metadataFor() EventType { return CustomerOrderStatus }

type NewOrderMetadata struct {
	OrderID      string `json:"orderId"`
	CustomerName string `json:"customerName"`
	TotalAmount  string `json:"totalAmount"`
	PlacedAt     string `json:"timestamp"`
}

func (NewOrderMetadata) metadataFor() EventType { return AdminNewOrder }

// OrderUpdateMetadata keeps caller supplied details alongside the two fields
// every update carries. On the wire the details are flattened into the same
// object as orderId and updateType.
type OrderUpdateMetadata struct {
	OrderID    string
	UpdateType string
	Details    map[string]any
}

func (OrderUpdateMetadata) metadataFor() EventType { return AdminOrderUpdate }

type GenericMetadata map[string]any

func (GenericMetadata) metadataFor() EventType { return "" }
