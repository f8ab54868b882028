package events

type EventType string

const (
	CustomerOrderStatus EventType = "CUSTOMER_ORDER_STATUS"
	AdminNewOrder       EventType = "ADMIN_NEW_ORDER"
	AdminOrderUpdate    EventType = "ADMIN_ORDER_UPDATE"
	InventoryUpdate     EventType = "INVENTORY_UPDATE"
	PaymentStatus       EventType = "PAYMENT_STATUS"
	SystemNotification  EventType = "SYSTEM_NOTIFICATION"
)

func (t EventType) String() string { return string(t) }

func (t EventType) IsValid() bool {
	switch t {
	case CustomerOrderStatus, AdminNewOrder, AdminOrderUpdate,
		InventoryUpdate, PaymentStatus, SystemNotification:
		return true
	}
	return false
}

// IsAdminScoped reports whether events of this type live on the admin channel.
func (t EventType) IsAdminScoped() bool {
	return t == AdminNewOrder || t == AdminOrderUpdate
}

type Action string

const (
	Refresh       Action = "REFRESH"
	FetchNew      Action = "FETCH_NEW"
	UpdatePartial Action = "UPDATE_PARTIAL"
	Remove        Action = "REMOVE"
	NoAction      Action = "NO_ACTION"
)

func (a Action) String() string { return string(a) }

func (a Action) IsValid() bool {
	switch a {
	case Refresh, FetchNew, UpdatePartial, Remove, NoAction:
		return true
	}
	return false
}

const EntityTypeOrder = "ORDER"
