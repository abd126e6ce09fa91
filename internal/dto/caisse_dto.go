package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Amounts cross the API as major-unit decimals ("1500.25"); the service layer
// converts them to integer minor units with the configured currency scale.
// Presence is checked by tags; numeric rules (>= 0, > 0, precision) are
// checked by the service.

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenSessionRequest struct {
	LocationID     string           `json:"location_id"     validate:"required,uuid"`
	OpeningBalance *decimal.Decimal `json:"opening_balance" validate:"required"`
	Notes          *string          `json:"notes"           validate:"omitempty,max=500"`
}

type CloseSessionRequest struct {
	CountedBalance *decimal.Decimal `json:"counted_balance" validate:"required"`
	Notes          *string          `json:"notes"           validate:"omitempty,max=500"`
}

type RecordMovementRequest struct {
	Kind          string          `json:"kind"           validate:"required,oneof=sale entry exit"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=cash mobile_money card check transfer other"`
	Description   string          `json:"description"    validate:"max=255"`
	Reference     *string         `json:"reference"      validate:"omitempty,max=100"`
}

type AnnotateSessionRequest struct {
	Note string `json:"note" validate:"required,max=1000"`
}

// SessionHistoryQuery is bound from the query string of GET /v1/caisse/sessions.
type SessionHistoryQuery struct {
	LocationID string `form:"location_id" validate:"omitempty,uuid"`
	Status     string `form:"status"      validate:"omitempty,oneof=open closed"`
	Page       int    `form:"page"        validate:"omitempty,min=1"`
	Limit      int    `form:"limit"       validate:"omitempty,min=1,max=100"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SessionResponse struct {
	ID             string          `json:"id"`
	LocationID     string          `json:"location_id"`
	LocationCode   string          `json:"location_code,omitempty"`
	LocationName   string          `json:"location_name,omitempty"`
	Status         string          `json:"status"` // open | closed
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	OpeningNotes   *string         `json:"opening_notes,omitempty"`
	OpenedBy       *string         `json:"opened_by,omitempty"`
	OpenedAt       time.Time       `json:"opened_at"`

	ClosingCountedBalance *decimal.Decimal `json:"closing_counted_balance,omitempty"`
	TheoreticalBalance    *decimal.Decimal `json:"theoretical_balance,omitempty"`
	Variance              *decimal.Decimal `json:"variance,omitempty"`
	VarianceFlag          *string          `json:"variance_flag,omitempty"` // none | info | warning
	ClosingNotes          *string          `json:"closing_notes,omitempty"`
	ClosedBy              *string          `json:"closed_by,omitempty"`
	ClosedAt              *time.Time       `json:"closed_at,omitempty"`
}

type MovementResponse struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"session_id"`
	Kind          string          `json:"kind"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Description   string          `json:"description"`
	Reference     *string         `json:"reference,omitempty"`
	RecordedBy    *string         `json:"recorded_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type StatisticsResponse struct {
	SessionID            string                     `json:"session_id"`
	Currency             string                     `json:"currency"`
	OpeningBalance       decimal.Decimal            `json:"opening_balance"`
	TotalSales           decimal.Decimal            `json:"total_sales"`
	TotalEntries         decimal.Decimal            `json:"total_entries"`
	TotalExits           decimal.Decimal            `json:"total_exits"`
	TheoreticalBalance   decimal.Decimal            `json:"theoretical_balance"`
	SalesByPaymentMethod map[string]decimal.Decimal `json:"sales_by_payment_method"`
	NetByPaymentMethod   map[string]decimal.Decimal `json:"net_by_payment_method"`
	MovementCount        int                        `json:"movement_count"`
}

type CloseSessionResponse struct {
	Session        SessionResponse    `json:"session"`
	Statistics     StatisticsResponse `json:"statistics"`
	CountedBalance decimal.Decimal    `json:"counted_balance"`
	Variance       decimal.Decimal    `json:"variance"`
	VarianceFlag   string             `json:"variance_flag"`
}

type AnnotationResponse struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	AuthorID  *string   `json:"author_id,omitempty"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionReportResponse is the full picture of one session: header,
// running or final statistics, the whole ledger and the audit trail.
type SessionReportResponse struct {
	Session     SessionResponse      `json:"session"`
	Statistics  StatisticsResponse   `json:"statistics"`
	Movements   []MovementResponse   `json:"movements"`
	Annotations []AnnotationResponse `json:"annotations"`
}

type SessionListResponse struct {
	Data  []SessionResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
