package service

import (
	"math"
	"math/rand"
	"testing"

	"mypostelma/internal/model"
	"mypostelma/internal/money"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mv(kind model.MovementKind, amount money.Amount, method model.PaymentMethod) model.CashMovement {
	return model.CashMovement{ID: uuid.New(), Kind: kind, Amount: amount, PaymentMethod: method}
}

func dayLedger() []model.CashMovement {
	return []model.CashMovement{
		mv(model.MovementSale, 30000, model.PaymentCash),
		mv(model.MovementEntry, 5000, model.PaymentCash),
		mv(model.MovementExit, 2000, model.PaymentCash),
	}
}

func TestFoldStatistics_ReferenceDay(t *testing.T) {
	session := &model.CashSession{ID: uuid.New(), OpeningBalance: 50000}

	stats, err := FoldStatistics(session, dayLedger())
	require.NoError(t, err)

	assert.Equal(t, money.Amount(30000), stats.TotalSales)
	assert.Equal(t, money.Amount(5000), stats.TotalEntries)
	assert.Equal(t, money.Amount(2000), stats.TotalExits)
	assert.Equal(t, money.Amount(83000), stats.TheoreticalBalance)
	assert.Equal(t, money.Amount(30000), stats.SalesByPaymentMethod[model.PaymentCash])
	assert.Equal(t, money.Amount(83000), stats.NetByPaymentMethod[model.PaymentCash])
	assert.Equal(t, 3, stats.MovementCount)
}

func TestFoldStatistics_OrderIndependent(t *testing.T) {
	session := &model.CashSession{ID: uuid.New(), OpeningBalance: 1234}
	ledger := []model.CashMovement{
		mv(model.MovementSale, 700, model.PaymentCard),
		mv(model.MovementSale, 1500, model.PaymentMobileMoney),
		mv(model.MovementExit, 400, model.PaymentCash),
		mv(model.MovementEntry, 250, model.PaymentCash),
		mv(model.MovementSale, 99, model.PaymentCash),
		mv(model.MovementExit, 10, model.PaymentTransfer),
	}
	want, err := FoldStatistics(session, ledger)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]model.CashMovement(nil), ledger...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got, err := FoldStatistics(session, shuffled)
		require.NoError(t, err)
		require.Equal(t, want.TheoreticalBalance, got.TheoreticalBalance)
		require.Equal(t, want.SalesByPaymentMethod, got.SalesByPaymentMethod)
		require.Equal(t, want.NetByPaymentMethod, got.NetByPaymentMethod)
	}
}

func TestFoldStatistics_Empty(t *testing.T) {
	session := &model.CashSession{ID: uuid.New(), OpeningBalance: 0}
	stats, err := FoldStatistics(session, nil)
	require.NoError(t, err)
	assert.Equal(t, money.Amount(0), stats.TheoreticalBalance)
	assert.Zero(t, stats.MovementCount)
}

func TestReconcile_Flags(t *testing.T) {
	stats, err := FoldStatistics(&model.CashSession{ID: uuid.New(), OpeningBalance: 50000}, dayLedger())
	require.NoError(t, err)

	cases := []struct {
		name      string
		counted   money.Amount
		tolerance money.Amount
		variance  money.Amount
		flag      model.VarianceFlag
	}{
		{"exact count", 83000, 0, 0, model.VarianceNone},
		{"short beyond zero tolerance", 82500, 0, -500, model.VarianceWarning},
		{"short within tolerance", 82500, 500, -500, model.VarianceInfo},
		{"short just beyond tolerance", 82500, 499, -500, model.VarianceWarning},
		{"over within tolerance", 83100, 200, 100, model.VarianceInfo},
		{"large surplus still closes", 183000, 1000, 100000, model.VarianceWarning},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := Reconcile(stats, tc.counted, tc.tolerance)
			require.NoError(t, err)
			assert.Equal(t, tc.variance, r.Variance)
			assert.Equal(t, tc.counted-r.Theoretical, r.Variance)
			assert.Equal(t, tc.flag, r.Flag)
		})
	}
}

func TestFoldStatistics_Overflow(t *testing.T) {
	session := &model.CashSession{ID: uuid.New(), OpeningBalance: math.MaxInt64 - 10}

	_, err := FoldStatistics(session, []model.CashMovement{mv(model.MovementSale, 100, model.PaymentCash)})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, money.ErrOverflow)

	_, err = FoldStatistics(&model.CashSession{ID: uuid.New()}, []model.CashMovement{
		mv(model.MovementExit, math.MaxInt64, model.PaymentCash),
		mv(model.MovementExit, 100, model.PaymentCash),
	})
	assert.ErrorIs(t, err, money.ErrOverflow)
}

func TestFoldStatistics_AtCeiling(t *testing.T) {
	session := &model.CashSession{ID: uuid.New(), OpeningBalance: money.MaxAmount}
	stats, err := FoldStatistics(session, []model.CashMovement{
		mv(model.MovementSale, money.MaxAmount, model.PaymentCash),
		mv(model.MovementEntry, money.MaxAmount, model.PaymentCash),
	})
	require.NoError(t, err)
	assert.Equal(t, 3*money.MaxAmount, stats.TheoreticalBalance)
}

func TestReconcile_VarianceOverflow(t *testing.T) {
	stats := ClosureStatistics{TheoreticalBalance: math.MinInt64 + 5}
	_, err := Reconcile(stats, 100, 0)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, money.ErrOverflow)
}

func TestNewReconciliationEngine_NegativeToleranceClamped(t *testing.T) {
	e := NewReconciliationEngine(Store{}, -5)
	assert.Equal(t, money.Amount(0), e.Tolerance())
}
