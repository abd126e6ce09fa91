package model

import (
	"time"

	"mypostelma/internal/money"

	"github.com/google/uuid"
)

// MovementKind: "sale" | "entry" | "exit".
// The sign of a movement comes from its kind; Amount is always > 0.
type MovementKind string

const (
	MovementSale  MovementKind = "sale"
	MovementEntry MovementKind = "entry"
	MovementExit  MovementKind = "exit"
)

func (k MovementKind) Valid() bool {
	switch k {
	case MovementSale, MovementEntry, MovementExit:
		return true
	}
	return false
}

// RequiresDescription reports whether manual movements must explain themselves.
func (k MovementKind) RequiresDescription() bool {
	return k == MovementEntry || k == MovementExit
}

type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "cash"
	PaymentMobileMoney PaymentMethod = "mobile_money"
	PaymentCard        PaymentMethod = "card"
	PaymentCheck       PaymentMethod = "check"
	PaymentTransfer    PaymentMethod = "transfer"
	PaymentOther       PaymentMethod = "other"
)

// PaymentMethods lists every accepted method in display order.
var PaymentMethods = []PaymentMethod{
	PaymentCash, PaymentMobileMoney, PaymentCard, PaymentCheck, PaymentTransfer, PaymentOther,
}

func (p PaymentMethod) Valid() bool {
	for _, m := range PaymentMethods {
		if p == m {
			return true
		}
	}
	return false
}

// CashMovement is an immutable event in the till ledger.
// Rows are NEVER updated or deleted; a mistake is fixed with a compensating movement.
// IDs are UUIDv7 so (created_at, id) gives a stable insertion order.
type CashMovement struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey"`
	SessionID     uuid.UUID     `gorm:"type:uuid;not null;index:idx_cash_movements_session_created,priority:1"`
	Kind          MovementKind  `gorm:"type:varchar(20);not null"`
	Amount        money.Amount  `gorm:"not null"`
	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null"`
	Description   string        `gorm:"not null;default:''"`
	// Reference links a sale movement to its originating ticket.
	Reference  *string    `gorm:"type:varchar(100)"`
	RecordedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt  time.Time  `gorm:"not null;index:idx_cash_movements_session_created,priority:2"`
}

func (CashMovement) TableName() string { return "cash_movements" }
