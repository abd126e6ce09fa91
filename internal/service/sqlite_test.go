package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mypostelma/internal/dto"
	"mypostelma/internal/repository"
	"mypostelma/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests run the services over the real GORM repositories.

func newSQLiteServices(t *testing.T) (SessionService, LedgerService, uuid.UUID) {
	t.Helper()
	db := testutil.NewSQLite(t)
	loc := testutil.SeedLocation(t, db, "dakar-plateau")
	store := Store{
		Sessions:  repository.NewSessionRepository(db),
		Movements: repository.NewMovementRepository(db),
		Locations: repository.NewLocationRepository(db),
	}
	ledger := NewLedgerService(store, xof, nil)
	sessions := NewSessionService(store, NewReconciliationEngine(store, 0), ledger, xof, nil, nil)
	return sessions, ledger, loc.ID
}

func TestSQLite_ReferenceDay(t *testing.T) {
	sessions, ledger, locID := newSQLiteServices(t)
	ctx := context.Background()

	open, err := sessions.Open(ctx, nil, dto.OpenSessionRequest{LocationID: locID.String(), OpeningBalance: decPtr(decimal.NewFromInt(50000))})
	require.NoError(t, err)
	id := uuid.MustParse(open.ID)

	active, err := sessions.GetActive(ctx, locID)
	require.NoError(t, err)
	assert.Equal(t, open.LocationCode, active.LocationCode)
	assert.NotEmpty(t, active.LocationCode)

	for _, req := range []dto.RecordMovementRequest{
		{Kind: "sale", Amount: decimal.NewFromInt(30000), PaymentMethod: "cash"},
		{Kind: "entry", Amount: decimal.NewFromInt(5000), PaymentMethod: "cash", Description: "appoint"},
		{Kind: "exit", Amount: decimal.NewFromInt(2000), PaymentMethod: "cash", Description: "fournitures"},
	} {
		_, err := ledger.Record(ctx, nil, id, req)
		require.NoError(t, err)
	}

	resp, err := sessions.Close(ctx, nil, id, dto.CloseSessionRequest{CountedBalance: decPtr(decimal.NewFromInt(82500))})
	require.NoError(t, err)
	assert.Equal(t, "-500", resp.Variance.String())
	assert.Equal(t, "warning", resp.VarianceFlag)
	assert.NotEmpty(t, resp.Session.LocationCode)

	report, err := sessions.Report(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "closed", report.Session.Status)
	require.NotNil(t, report.Session.TheoreticalBalance)
	assert.Equal(t, "83000", report.Session.TheoreticalBalance.String())
	assert.Len(t, report.Movements, 3)

	_, err = ledger.Record(ctx, nil, id, dto.RecordMovementRequest{Kind: "sale", Amount: decimal.NewFromInt(1), PaymentMethod: "cash"})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSQLite_ConcurrentOpen(t *testing.T) {
	sessions, _, locID := newSQLiteServices(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = sessions.Open(context.Background(), nil, dto.OpenSessionRequest{LocationID: locID.String(), OpeningBalance: decPtr(decimal.Zero)})
		}(i)
	}
	wg.Wait()

	conflicts := 0
	for _, err := range errs {
		if errors.Is(err, ErrConflict) {
			conflicts++
		} else {
			assert.NoError(t, err)
		}
	}
	assert.Equal(t, 1, conflicts)
}

func TestSQLite_CloseRacingAppends(t *testing.T) {
	sessions, ledger, locID := newSQLiteServices(t)
	ctx := context.Background()

	open, err := sessions.Open(ctx, nil, dto.OpenSessionRequest{LocationID: locID.String(), OpeningBalance: decPtr(decimal.Zero)})
	require.NoError(t, err)
	id := uuid.MustParse(open.ID)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int64
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Record(ctx, nil, id, dto.RecordMovementRequest{Kind: "sale", Amount: decimal.NewFromInt(100), PaymentMethod: "cash"})
			if err == nil {
				mu.Lock()
				accepted += 100
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInvalidState)
		}()
	}
	var closeResp *dto.CloseSessionResponse
	wg.Add(1)
	go func() {
		defer wg.Done()
		var err error
		closeResp, err = sessions.Close(ctx, nil, id, dto.CloseSessionRequest{CountedBalance: decPtr(decimal.Zero)})
		assert.NoError(t, err)
	}()
	wg.Wait()

	// Every accepted movement is part of the closing snapshot, no more no less.
	require.NotNil(t, closeResp)
	assert.True(t, decimal.NewFromInt(accepted).Equal(closeResp.Statistics.TheoreticalBalance))

	stats, err := sessions.Statistics(ctx, id)
	require.NoError(t, err)
	assert.True(t, stats.TheoreticalBalance.Equal(closeResp.Statistics.TheoreticalBalance))
}
