package service

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"mypostelma/internal/dto"
	"mypostelma/internal/metrics"
	"mypostelma/internal/model"
	"mypostelma/internal/money"
	"mypostelma/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Clock returns the current time; tests substitute a fixed one.
type Clock func() time.Time

// LedgerService records and reads the append-only movement ledger.
type LedgerService interface {
	Record(ctx context.Context, operatorID *uuid.UUID, sessionID uuid.UUID, req dto.RecordMovementRequest) (*dto.MovementResponse, error)
	List(ctx context.Context, sessionID uuid.UUID) ([]dto.MovementResponse, error)
	// Movements yields the ledger in order. Each range over the sequence
	// runs a fresh query; nothing is held between iterations.
	Movements(ctx context.Context, sessionID uuid.UUID) iter.Seq2[model.CashMovement, error]
}

type ledgerService struct {
	store    Store
	currency money.Currency
	now      Clock
}

func NewLedgerService(store Store, currency money.Currency, now Clock) LedgerService {
	if now == nil {
		now = time.Now
	}
	return &ledgerService{store: store, currency: currency, now: now}
}

// ── Record ────────────────────────────────────────────────────────────────────
// Sign comes from the kind, never from the amount. Corrections are new
// compensating movements; there is no update or delete.

func (s *ledgerService) Record(ctx context.Context, operatorID *uuid.UUID, sessionID uuid.UUID, req dto.RecordMovementRequest) (*dto.MovementResponse, error) {
	mov, err := s.buildMovement(operatorID, sessionID, req)
	if err != nil {
		metrics.IncMovement(req.Kind, "rejected")
		return nil, err
	}

	err = s.store.guard(func() error { return s.store.Movements.Append(ctx, mov) })
	if err != nil {
		metrics.IncMovement(req.Kind, metrics.ResultError)
		if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrSessionNotOpen) {
			return nil, invalidStateErr(msgMovementRejected, err)
		}
		return nil, err
	}

	metrics.IncMovement(string(mov.Kind), metrics.ResultSuccess)
	log.Debug().
		Str("session_id", sessionID.String()).
		Str("movement_id", mov.ID.String()).
		Str("kind", string(mov.Kind)).
		Int64("amount", int64(mov.Amount)).
		Msg("movement recorded")

	resp := toMovementResponse(s.currency, mov)
	return &resp, nil
}

func (s *ledgerService) buildMovement(operatorID *uuid.UUID, sessionID uuid.UUID, req dto.RecordMovementRequest) (*model.CashMovement, error) {
	kind := model.MovementKind(req.Kind)
	if !kind.Valid() {
		return nil, validationErr("kind", "type de mouvement inconnu")
	}
	method := model.PaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		return nil, validationErr("payment_method", "moyen de paiement inconnu")
	}
	amount, err := toMinor(s.currency, "amount", req.Amount)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, validationErr("amount", "le montant doit être strictement positif")
	}
	desc := strings.TrimSpace(req.Description)
	if kind.RequiresDescription() && desc == "" {
		return nil, validationErr("description", msgDescriptionRequired)
	}
	var ref *string
	if req.Reference != nil {
		if r := strings.TrimSpace(*req.Reference); r != "" {
			ref = &r
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	return &model.CashMovement{
		ID:            id,
		SessionID:     sessionID,
		Kind:          kind,
		Amount:        amount,
		PaymentMethod: method,
		Description:   desc,
		Reference:     ref,
		RecordedBy:    operatorID,
		CreatedAt:     s.now().UTC(),
	}, nil
}

// ── Read ──────────────────────────────────────────────────────────────────────

func (s *ledgerService) List(ctx context.Context, sessionID uuid.UUID) ([]dto.MovementResponse, error) {
	if err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	var movs []model.CashMovement
	err := s.store.guard(func() error {
		var err error
		movs, err = s.store.Movements.ListBySession(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]dto.MovementResponse, 0, len(movs))
	for i := range movs {
		out = append(out, toMovementResponse(s.currency, &movs[i]))
	}
	return out, nil
}

// errStopIteration ends EachBySession when the consumer breaks out of a range.
var errStopIteration = errors.New("stop iteration")

func (s *ledgerService) Movements(ctx context.Context, sessionID uuid.UUID) iter.Seq2[model.CashMovement, error] {
	return func(yield func(model.CashMovement, error) bool) {
		err := s.store.guard(func() error {
			return s.store.Movements.EachBySession(ctx, sessionID, func(m model.CashMovement) error {
				if !yield(m, nil) {
					return errStopIteration
				}
				return nil
			})
		})
		if err != nil && !errors.Is(err, errStopIteration) {
			yield(model.CashMovement{}, err)
		}
	}
}

func (s *ledgerService) requireSession(ctx context.Context, sessionID uuid.UUID) error {
	err := s.store.guard(func() error {
		_, err := s.store.Sessions.FindByID(ctx, sessionID)
		return err
	})
	if isNotFound(err) {
		return notFoundErr(msgSessionNotFound)
	}
	return err
}
