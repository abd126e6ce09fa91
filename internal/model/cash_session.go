package model

import (
	"time"

	"mypostelma/internal/money"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionStatus is the lifecycle state of a till: "open" | "closed".
type SessionStatus string

const (
	SessionOpen   SessionStatus = "open"
	SessionClosed SessionStatus = "closed"
)

// VarianceFlag classifies the gap between counted and theoretical balance.
// "none": exact count, "info": within tolerance, "warning": beyond tolerance.
type VarianceFlag string

const (
	VarianceNone    VarianceFlag = "none"
	VarianceInfo    VarianceFlag = "info"
	VarianceWarning VarianceFlag = "warning"
)

// CashSession is one open-to-close lifecycle of a till at a location.
// At most one row per location may have status "open" (partial unique index
// ux_cash_sessions_open_location). Once closed the row is never updated again;
// later remarks go to SessionAnnotation.
type CashSession struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey"`
	LocationID     uuid.UUID     `gorm:"type:uuid;not null;index"`
	Status         SessionStatus `gorm:"type:varchar(20);not null;default:'open'"`
	OpeningBalance money.Amount  `gorm:"not null"`
	OpeningNotes   *string
	OpenedBy       *uuid.UUID `gorm:"type:uuid"`
	OpenedAt       time.Time  `gorm:"not null"`

	// Closure data, written exactly once by the close transaction.
	ClosingCountedBalance *money.Amount
	TheoreticalBalance    *money.Amount
	Variance              *money.Amount
	VarianceFlag          *VarianceFlag `gorm:"type:varchar(20)"`
	TotalSales            *money.Amount
	TotalEntries          *money.Amount
	TotalExits            *money.Amount
	SalesByPaymentMethod  datatypes.JSON
	ClosingNotes          *string
	ClosedBy              *uuid.UUID `gorm:"type:uuid"`
	ClosedAt              *time.Time

	Location *Location `gorm:"foreignKey:LocationID"`
}

func (CashSession) TableName() string { return "cash_sessions" }

func (s *CashSession) IsOpen() bool { return s.Status == SessionOpen }

// SessionAnnotation is an append-only audit remark attached to a session.
// It is the only write a closed session accepts.
type SessionAnnotation struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	SessionID uuid.UUID  `gorm:"type:uuid;not null;index"`
	AuthorID  *uuid.UUID `gorm:"type:uuid"`
	Note      string     `gorm:"not null"`
	CreatedAt time.Time  `gorm:"not null"`
}

func (SessionAnnotation) TableName() string { return "session_annotations" }
