package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// User is a staff account. Role is one of the enum.UserRole values.
type User struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	Name           string
	Role           string
	AvatarURL      pgtype.Text
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Table is a physical seating unit. Status is only mutated as a side effect
// of order-status transitions, or by direct management edits.
type Table struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Capacity    int32
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Menu is a sellable item. Price is whole rupiah; there is no fractional
// subunit in this domain.
type Menu struct {
	ID          uuid.UUID
	Name        string
	Description pgtype.Text
	Price       int64
	Discount    int64
	Category    string
	ImageURL    pgtype.Text
	IsAvailable bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Order is a customer's tab, tied to one table. Cancellation is a status,
// never a delete. GatewayRef is the unique payment-gateway transaction
// reference; PaidAmount and PaidAt are set exactly once, by settlement.
type Order struct {
	ID           uuid.UUID
	OrderCode    string
	CustomerName string
	TableID      uuid.UUID
	Status       string
	PaymentToken pgtype.Text
	GatewayRef   pgtype.Text
	PaidAmount   pgtype.Int8
	PaidAt       pgtype.Timestamptz
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderMenu is one menu item and quantity within an order, with its own
// preparation lifecycle.
type OrderMenu struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	MenuID    uuid.UUID
	Quantity  int32
	Notes     string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
