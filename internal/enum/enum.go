package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusDraft     = "draft"
	OrderStatusConfirmed = "confirmed"
	OrderStatusServed    = "served"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
)

const (
	OrderMenuStatusPending   = "pending"
	OrderMenuStatusPreparing = "preparing"
	OrderMenuStatusReady     = "ready"
	OrderMenuStatusServed    = "served"
	OrderMenuStatusCancelled = "cancelled"
)

const (
	TableStatusAvailable   = "available"
	TableStatusReserved    = "reserved"
	TableStatusOccupied    = "occupied"
	TableStatusMaintenance = "maintenance"
)

// ── Roles (CHECK constrained in DB) ──

const (
	UserRoleAdmin   = "admin"
	UserRoleCashier = "cashier"
	UserRoleKitchen = "kitchen"
)

// OrderStatuses lists every order status in lifecycle order.
var OrderStatuses = []string{
	OrderStatusDraft,
	OrderStatusConfirmed,
	OrderStatusServed,
	OrderStatusPaid,
	OrderStatusCancelled,
}

// OrderMenuStatuses lists every order-menu status in lifecycle order.
var OrderMenuStatuses = []string{
	OrderMenuStatusPending,
	OrderMenuStatusPreparing,
	OrderMenuStatusReady,
	OrderMenuStatusServed,
	OrderMenuStatusCancelled,
}

// IsOrderStatus reports whether s is a member of the order-status vocabulary.
// No coercion: casing and spelling must match exactly.
func IsOrderStatus(s string) bool {
	switch s {
	case OrderStatusDraft, OrderStatusConfirmed, OrderStatusServed,
		OrderStatusPaid, OrderStatusCancelled:
		return true
	}
	return false
}

// IsOrderMenuStatus reports whether s is a member of the order-menu-status vocabulary.
func IsOrderMenuStatus(s string) bool {
	switch s {
	case OrderMenuStatusPending, OrderMenuStatusPreparing, OrderMenuStatusReady,
		OrderMenuStatusServed, OrderMenuStatusCancelled:
		return true
	}
	return false
}

// IsTableStatus reports whether s is a member of the table-status vocabulary.
func IsTableStatus(s string) bool {
	switch s {
	case TableStatusAvailable, TableStatusReserved, TableStatusOccupied,
		TableStatusMaintenance:
		return true
	}
	return false
}

// IsUserRole reports whether s is a member of the role vocabulary.
func IsUserRole(s string) bool {
	switch s {
	case UserRoleAdmin, UserRoleCashier, UserRoleKitchen:
		return true
	}
	return false
}

// TableStatusFor maps an order status to the table status it implies.
// Total over the order-status vocabulary; a desynchronized table row can be
// repaired from the order status alone.
func TableStatusFor(orderStatus string) string {
	switch orderStatus {
	case OrderStatusDraft:
		return TableStatusReserved
	case OrderStatusConfirmed, OrderStatusServed:
		return TableStatusOccupied
	default:
		// paid and cancelled release the table
		return TableStatusAvailable
	}
}
