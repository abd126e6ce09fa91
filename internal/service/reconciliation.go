package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"mypostelma/internal/model"
	"mypostelma/internal/money"
	"mypostelma/internal/repository"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ClosureStatistics is derived from a session's opening balance and ledger.
// It is never stored as a source of truth; the ledger is.
type ClosureStatistics struct {
	SessionID          uuid.UUID
	OpeningBalance     money.Amount
	TotalSales         money.Amount
	TotalEntries       money.Amount
	TotalExits         money.Amount
	TheoreticalBalance money.Amount
	// SalesByPaymentMethod sums sale movements only.
	SalesByPaymentMethod map[model.PaymentMethod]money.Amount
	// NetByPaymentMethod is the signed net of every movement per method;
	// the cash line starts from the opening float.
	NetByPaymentMethod map[model.PaymentMethod]money.Amount
	MovementCount      int
}

// NewClosureStatistics starts a fold at the opening balance.
func NewClosureStatistics(sessionID uuid.UUID, opening money.Amount) ClosureStatistics {
	return ClosureStatistics{
		SessionID:            sessionID,
		OpeningBalance:       opening,
		TheoreticalBalance:   opening,
		SalesByPaymentMethod: map[model.PaymentMethod]money.Amount{},
		NetByPaymentMethod:   map[model.PaymentMethod]money.Amount{model.PaymentCash: opening},
	}
}

// Add folds one movement in. Addition is commutative, so the result does
// not depend on the order movements are seen in. Any sum leaving the int64
// range returns money.ErrOverflow and leaves s unusable.
func (s *ClosureStatistics) Add(m model.CashMovement) error {
	s.MovementCount++
	var err error
	acc := func(dst *money.Amount, delta money.Amount) {
		if err != nil {
			return
		}
		*dst, err = dst.Add(delta)
	}
	accMap := func(dst map[model.PaymentMethod]money.Amount, delta money.Amount) {
		v := dst[m.PaymentMethod]
		acc(&v, delta)
		dst[m.PaymentMethod] = v
	}
	switch m.Kind {
	case model.MovementSale:
		acc(&s.TotalSales, m.Amount)
		accMap(s.SalesByPaymentMethod, m.Amount)
		accMap(s.NetByPaymentMethod, m.Amount)
	case model.MovementEntry:
		acc(&s.TotalEntries, m.Amount)
		accMap(s.NetByPaymentMethod, m.Amount)
	case model.MovementExit:
		acc(&s.TotalExits, m.Amount)
		accMap(s.NetByPaymentMethod, -m.Amount)
	}
	theoretical := s.OpeningBalance
	acc(&theoretical, s.TotalSales)
	acc(&theoretical, s.TotalEntries)
	acc(&theoretical, -s.TotalExits)
	if err != nil {
		return err
	}
	s.TheoreticalBalance = theoretical
	return nil
}

// FoldStatistics computes statistics over a materialized ledger.
func FoldStatistics(session *model.CashSession, movements []model.CashMovement) (ClosureStatistics, error) {
	stats := NewClosureStatistics(session.ID, session.OpeningBalance)
	for _, m := range movements {
		if err := stats.Add(m); err != nil {
			return ClosureStatistics{}, overflowErr(err)
		}
	}
	return stats, nil
}

// Reconciliation is the outcome of comparing a physical count to the ledger.
type Reconciliation struct {
	Counted     money.Amount
	Theoretical money.Amount
	Variance    money.Amount // counted - theoretical; negative means missing cash
	Flag        model.VarianceFlag
}

// Reconcile classifies counted against theoretical. Tolerance is an absolute
// number of minor units. A variance never blocks a close.
func Reconcile(stats ClosureStatistics, counted, tolerance money.Amount) (Reconciliation, error) {
	variance, err := counted.Sub(stats.TheoreticalBalance)
	if err != nil {
		return Reconciliation{}, overflowErr(err)
	}
	flag := model.VarianceWarning
	switch {
	case variance == 0:
		flag = model.VarianceNone
	case variance.Abs() <= tolerance:
		flag = model.VarianceInfo
	}
	return Reconciliation{
		Counted:     counted,
		Theoretical: stats.TheoreticalBalance,
		Variance:    variance,
		Flag:        flag,
	}, nil
}

// ── ReconciliationEngine ──────────────────────────────────────────────────────

// ReconciliationEngine computes statistics from storage and stamps closure
// data onto a session being closed.
type ReconciliationEngine struct {
	store     Store
	tolerance money.Amount
}

func NewReconciliationEngine(store Store, tolerance money.Amount) *ReconciliationEngine {
	if tolerance < 0 {
		tolerance = 0
	}
	return &ReconciliationEngine{store: store, tolerance: tolerance}
}

func (e *ReconciliationEngine) Tolerance() money.Amount { return e.tolerance }

// ComputeStatistics folds the current ledger of a session, open or closed.
func (e *ReconciliationEngine) ComputeStatistics(ctx context.Context, sessionID uuid.UUID) (*model.CashSession, ClosureStatistics, error) {
	var session *model.CashSession
	err := e.store.guard(func() error {
		var err error
		session, err = e.store.Sessions.FindByID(ctx, sessionID)
		return err
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ClosureStatistics{}, notFoundErr(msgSessionNotFound)
		}
		return nil, ClosureStatistics{}, err
	}

	stats := NewClosureStatistics(session.ID, session.OpeningBalance)
	err = e.store.guard(func() error {
		stats = NewClosureStatistics(session.ID, session.OpeningBalance)
		return e.store.Movements.EachBySession(ctx, sessionID, func(m model.CashMovement) error {
			return stats.Add(m)
		})
	})
	if errors.Is(err, money.ErrOverflow) {
		return nil, ClosureStatistics{}, overflowErr(err)
	}
	if err != nil {
		return nil, ClosureStatistics{}, err
	}
	return session, stats, nil
}

// Reconcile applies the configured tolerance.
func (e *ReconciliationEngine) Reconcile(stats ClosureStatistics, counted money.Amount) (Reconciliation, error) {
	return Reconcile(stats, counted, e.tolerance)
}

// closure returns the callback run inside the close transaction. It writes
// the closure snapshot onto the locked session and reports what it computed.
func (e *ReconciliationEngine) closure(counted money.Amount, notes *string, closedBy *uuid.UUID, now time.Time,
	out *ClosureStatistics, rec *Reconciliation) repository.CloseFunc {
	return func(s *model.CashSession, movements []model.CashMovement) error {
		stats, err := FoldStatistics(s, movements)
		if err != nil {
			return err
		}
		r, err := e.Reconcile(stats, counted)
		if err != nil {
			return err
		}

		sales := make(map[string]int64, len(stats.SalesByPaymentMethod))
		for method, amt := range stats.SalesByPaymentMethod {
			sales[string(method)] = int64(amt)
		}
		raw, err := json.Marshal(sales)
		if err != nil {
			return fmt.Errorf("encode sales by payment method: %w", err)
		}

		closedAt := now.UTC()
		s.ClosingCountedBalance = &r.Counted
		s.TheoreticalBalance = &r.Theoretical
		s.Variance = &r.Variance
		s.VarianceFlag = &r.Flag
		s.TotalSales = &stats.TotalSales
		s.TotalEntries = &stats.TotalEntries
		s.TotalExits = &stats.TotalExits
		s.SalesByPaymentMethod = datatypes.JSON(raw)
		s.ClosingNotes = notes
		s.ClosedBy = closedBy
		s.ClosedAt = &closedAt

		*out = stats
		*rec = r
		return nil
	}
}
