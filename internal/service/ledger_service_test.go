package service

import (
	"context"
	"sync"
	"testing"

	"mypostelma/internal/dto"
	"mypostelma/internal/model"
	"mypostelma/internal/money"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_RejectsNonPositiveAmounts(t *testing.T) {
	f := newFixture(t, 0)
	id := f.open(t, 1000)

	for _, amount := range []int64{0, -100} {
		_, err := f.ledger.Record(context.Background(), nil, id, dto.RecordMovementRequest{
			Kind: "sale", Amount: decimal.NewFromInt(amount), PaymentMethod: "cash",
		})
		assert.ErrorIs(t, err, ErrValidation, "amount %d", amount)
	}
	assert.Zero(t, f.mem.movementCount(id))
}

func TestRecord_Validation(t *testing.T) {
	f := newFixture(t, 0)
	id := f.open(t, 0)

	cases := []struct {
		name  string
		req   dto.RecordMovementRequest
		field string
	}{
		{"unknown kind", dto.RecordMovementRequest{Kind: "refund", Amount: decimal.NewFromInt(1), PaymentMethod: "cash"}, "kind"},
		{"unknown method", dto.RecordMovementRequest{Kind: "sale", Amount: decimal.NewFromInt(1), PaymentMethod: "bitcoin"}, "payment_method"},
		{"entry without description", dto.RecordMovementRequest{Kind: "entry", Amount: decimal.NewFromInt(1), PaymentMethod: "cash", Description: "  "}, "description"},
		{"exit without description", dto.RecordMovementRequest{Kind: "exit", Amount: decimal.NewFromInt(1), PaymentMethod: "cash"}, "description"},
		{"sub-minor amount", dto.RecordMovementRequest{Kind: "sale", Amount: decimal.RequireFromString("0.5"), PaymentMethod: "cash"}, "amount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.Record(context.Background(), nil, id, tc.req)
			require.ErrorIs(t, err, ErrValidation)
			var derr *Error
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, tc.field, derr.Field)
		})
	}
	assert.Zero(t, f.mem.movementCount(id))
}

func TestRecord_SaleWithoutDescription_Accepted(t *testing.T) {
	f := newFixture(t, 0)
	id := f.open(t, 0)
	ref := " T-0042 "
	operator := uuid.New()

	resp, err := f.ledger.Record(context.Background(), &operator, id, dto.RecordMovementRequest{
		Kind: "sale", Amount: decimal.NewFromInt(2500), PaymentMethod: "mobile_money", Reference: &ref,
	})
	require.NoError(t, err)
	assert.Equal(t, "2500", resp.Amount.String())
	require.NotNil(t, resp.Reference)
	assert.Equal(t, "T-0042", *resp.Reference)
	require.NotNil(t, resp.RecordedBy)
	assert.Equal(t, operator.String(), *resp.RecordedBy)
}

func TestRecord_ClosedSession_InvalidStateLedgerUnchanged(t *testing.T) {
	f := newFixture(t, 0)
	id := f.open(t, 100)
	f.record(t, id, "sale", 10, "")
	_, err := f.sessions.Close(context.Background(), nil, id, dto.CloseSessionRequest{CountedBalance: decPtr(decimal.NewFromInt(110))})
	require.NoError(t, err)

	_, err = f.ledger.Record(context.Background(), nil, id, dto.RecordMovementRequest{
		Kind: "sale", Amount: decimal.NewFromInt(10), PaymentMethod: "cash",
	})
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorContains(t, err, "session fermée ou inexistante")
	assert.Equal(t, 1, f.mem.movementCount(id))
}

func TestRecord_MissingSession_InvalidState(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.ledger.Record(context.Background(), nil, uuid.New(), dto.RecordMovementRequest{
		Kind: "sale", Amount: decimal.NewFromInt(10), PaymentMethod: "cash",
	})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRecord_ConcurrentSales_BothCounted(t *testing.T) {
	f := newFixture(t, 0)
	id := f.open(t, 0)

	var wg sync.WaitGroup
	for _, amt := range []int64{1000, 2000} {
		wg.Add(1)
		go func(amt int64) {
			defer wg.Done()
			_, err := f.ledger.Record(context.Background(), nil, id, dto.RecordMovementRequest{
				Kind: "sale", Amount: decimal.NewFromInt(amt), PaymentMethod: "cash",
			})
			assert.NoError(t, err)
		}(amt)
	}
	wg.Wait()

	assert.Equal(t, 2, f.mem.movementCount(id))
	stats, err := f.sessions.Statistics(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "3000", stats.TheoreticalBalance.String())
}

func TestMovements_LazyAndRestartable(t *testing.T) {
	f := newFixture(t, 0)
	id := f.open(t, 0)
	f.record(t, id, "sale", 1, "")
	f.record(t, id, "sale", 2, "")

	seq := f.ledger.Movements(context.Background(), id)

	var first []money.Amount
	for m, err := range seq {
		require.NoError(t, err)
		first = append(first, m.Amount)
	}
	assert.Equal(t, []money.Amount{1, 2}, first)

	// A movement recorded after the first pass shows up on the next one.
	f.record(t, id, "sale", 3, "")
	var second []money.Amount
	for m, err := range seq {
		require.NoError(t, err)
		second = append(second, m.Amount)
	}
	assert.Equal(t, []money.Amount{1, 2, 3}, second)

	count := 0
	for range seq {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestList_UnknownSession_NotFound(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.ledger.List(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecord_TwoDigitCurrency(t *testing.T) {
	mem := newMemStore()
	store := mem.store()
	eur := money.Currency{Code: "EUR", Scale: 2}
	ledger := NewLedgerService(store, eur, nil)
	loc := mem.addLocation("paris", true)
	svc := NewSessionService(store, NewReconciliationEngine(store, 0), ledger, eur, nil, nil)

	open, err := svc.Open(context.Background(), nil, dto.OpenSessionRequest{LocationID: loc.ID.String(), OpeningBalance: decPtr(decimal.RequireFromString("100.50"))})
	require.NoError(t, err)
	id := uuid.MustParse(open.ID)

	_, err = ledger.Record(context.Background(), nil, id, dto.RecordMovementRequest{
		Kind: "sale", Amount: decimal.RequireFromString("19.99"), PaymentMethod: "card",
	})
	require.NoError(t, err)

	stats, err := svc.Statistics(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("120.49").Equal(stats.TheoreticalBalance))
	assert.True(t, decimal.RequireFromString("19.99").Equal(stats.SalesByPaymentMethod[string(model.PaymentCard)]))
}
