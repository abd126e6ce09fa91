package service

import (
	"context"
	"errors"
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

// ClosureQueue receives closed sessions for asynchronous Z-report generation.
type ClosureQueue interface {
	EnqueueClosureReport(ctx context.Context, sessionID uuid.UUID) error
}

// SessionService owns the open → closed lifecycle of a till.
type SessionService interface {
	Open(ctx context.Context, operatorID *uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error)
	// GetActive returns nil, nil when the location has no open session.
	GetActive(ctx context.Context, locationID uuid.UUID) (*dto.SessionResponse, error)
	Close(ctx context.Context, operatorID *uuid.UUID, sessionID uuid.UUID, req dto.CloseSessionRequest) (*dto.CloseSessionResponse, error)
	Statistics(ctx context.Context, sessionID uuid.UUID) (*dto.StatisticsResponse, error)
	Report(ctx context.Context, sessionID uuid.UUID) (*dto.SessionReportResponse, error)
	History(ctx context.Context, q dto.SessionHistoryQuery) (*dto.SessionListResponse, error)
	// Annotate appends an audit note; it is the only write a closed session accepts.
	Annotate(ctx context.Context, authorID *uuid.UUID, sessionID uuid.UUID, req dto.AnnotateSessionRequest) (*dto.AnnotationResponse, error)
}

type sessionService struct {
	store    Store
	engine   *ReconciliationEngine
	ledger   LedgerService
	currency money.Currency
	queue    ClosureQueue
	now      Clock
}

// NewSessionService wires the session manager. queue may be nil, in which
// case closes are not followed by a report job.
func NewSessionService(store Store, engine *ReconciliationEngine, ledger LedgerService, currency money.Currency, queue ClosureQueue, now Clock) SessionService {
	if now == nil {
		now = time.Now
	}
	return &sessionService{
		store:    store,
		engine:   engine,
		ledger:   ledger,
		currency: currency,
		queue:    queue,
		now:      now,
	}
}

// ── Open ──────────────────────────────────────────────────────────────────────
// Uniqueness of the open session per location is enforced by the partial
// unique index; the losing insert of a race surfaces as ErrDuplicate.

func (s *sessionService) Open(ctx context.Context, operatorID *uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error) {
	locationID, err := uuid.Parse(req.LocationID)
	if err != nil {
		return nil, validationErr("location_id", "identifiant de boutique invalide")
	}
	opening, err := requiredMinor(s.currency, "opening_balance", req.OpeningBalance)
	if err != nil {
		return nil, err
	}
	if opening.IsNegative() {
		return nil, validationErr("opening_balance", "le fond de caisse ne peut pas être négatif")
	}

	var loc *model.Location
	err = s.store.guard(func() error {
		var err error
		loc, err = s.store.Locations.FindByID(ctx, locationID)
		return err
	})
	switch {
	case isNotFound(err):
		return nil, validationErr("location_id", msgLocationNotFound)
	case err != nil:
		return nil, err
	case !loc.Active:
		return nil, validationErr("location_id", msgLocationInactive)
	}

	session := &model.CashSession{
		ID:             uuid.New(),
		LocationID:     locationID,
		Status:         model.SessionOpen,
		OpeningBalance: opening,
		OpeningNotes:   trimmedOrNil(req.Notes),
		OpenedBy:       operatorID,
		OpenedAt:       s.now().UTC(),
	}
	err = s.store.guard(func() error { return s.store.Sessions.CreateOpen(ctx, session) })
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			metrics.IncSessionOpened("conflict")
			return nil, conflictErr(msgSessionAlreadyOpen, err)
		}
		metrics.IncSessionOpened(metrics.ResultError)
		return nil, err
	}
	session.Location = loc

	metrics.IncSessionOpened(metrics.ResultSuccess)
	log.Info().
		Str("session_id", session.ID.String()).
		Str("location", loc.Code).
		Int64("opening_balance", int64(opening)).
		Msg("cash session opened")

	resp := toSessionResponse(s.currency, session)
	return &resp, nil
}

// ── GetActive ─────────────────────────────────────────────────────────────────

func (s *sessionService) GetActive(ctx context.Context, locationID uuid.UUID) (*dto.SessionResponse, error) {
	var session *model.CashSession
	err := s.store.guard(func() error {
		var err error
		session, err = s.store.Sessions.FindOpenByLocation(ctx, locationID)
		return err
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	resp := toSessionResponse(s.currency, session)
	return &resp, nil
}

// ── Close ─────────────────────────────────────────────────────────────────────
// Lock, fold, reconcile and persist happen in one transaction, so no movement
// can slip in between the computed theoretical balance and the closed status.

func (s *sessionService) Close(ctx context.Context, operatorID *uuid.UUID, sessionID uuid.UUID, req dto.CloseSessionRequest) (*dto.CloseSessionResponse, error) {
	counted, err := requiredMinor(s.currency, "counted_balance", req.CountedBalance)
	if err != nil {
		return nil, err
	}
	if counted.IsNegative() {
		return nil, validationErr("counted_balance", "le montant compté ne peut pas être négatif")
	}

	var (
		stats  ClosureStatistics
		rec    Reconciliation
		closed *model.CashSession
	)
	fn := s.engine.closure(counted, trimmedOrNil(req.Notes), operatorID, s.now(), &stats, &rec)
	err = s.store.guard(func() error {
		var err error
		closed, err = s.store.Sessions.Close(ctx, sessionID, fn)
		return err
	})
	switch {
	case isNotFound(err):
		return nil, notFoundErr(msgSessionNotFound)
	case errors.Is(err, repository.ErrSessionNotOpen):
		return nil, invalidStateErr(msgSessionNotOpen, err)
	case err != nil:
		return nil, err
	}

	metrics.ObserveSessionClosed(string(rec.Flag), int64(rec.Variance.Abs()))
	evt := log.Info()
	if rec.Flag == model.VarianceWarning {
		evt = log.Warn()
	}
	evt.Str("session_id", sessionID.String()).
		Int64("theoretical", int64(rec.Theoretical)).
		Int64("counted", int64(rec.Counted)).
		Int64("variance", int64(rec.Variance)).
		Str("flag", string(rec.Flag)).
		Msg("cash session closed")

	s.enqueueReport(ctx, sessionID)

	return &dto.CloseSessionResponse{
		Session:        toSessionResponse(s.currency, closed),
		Statistics:     toStatisticsResponse(s.currency, stats),
		CountedBalance: s.currency.Decimal(rec.Counted),
		Variance:       s.currency.Decimal(rec.Variance),
		VarianceFlag:   string(rec.Flag),
	}, nil
}

// enqueueReport never fails the close: the session is already committed.
func (s *sessionService) enqueueReport(ctx context.Context, sessionID uuid.UUID) {
	if s.queue == nil {
		return
	}
	if err := s.queue.EnqueueClosureReport(ctx, sessionID); err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to enqueue closure report")
	}
}

// ── Reads ─────────────────────────────────────────────────────────────────────

func (s *sessionService) Statistics(ctx context.Context, sessionID uuid.UUID) (*dto.StatisticsResponse, error) {
	_, stats, err := s.engine.ComputeStatistics(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	resp := toStatisticsResponse(s.currency, stats)
	return &resp, nil
}

func (s *sessionService) Report(ctx context.Context, sessionID uuid.UUID) (*dto.SessionReportResponse, error) {
	session, stats, err := s.engine.ComputeStatistics(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	movements, err := s.ledger.List(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var notes []model.SessionAnnotation
	err = s.store.guard(func() error {
		var err error
		notes, err = s.store.Sessions.ListAnnotations(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	annotations := make([]dto.AnnotationResponse, 0, len(notes))
	for i := range notes {
		annotations = append(annotations, toAnnotationResponse(&notes[i]))
	}

	return &dto.SessionReportResponse{
		Session:     toSessionResponse(s.currency, session),
		Statistics:  toStatisticsResponse(s.currency, stats),
		Movements:   movements,
		Annotations: annotations,
	}, nil
}

func (s *sessionService) History(ctx context.Context, q dto.SessionHistoryQuery) (*dto.SessionListResponse, error) {
	filter := repository.SessionFilter{
		Status: model.SessionStatus(q.Status),
		Page:   q.Page,
		Limit:  q.Limit,
	}
	if filter.Status != "" && filter.Status != model.SessionOpen && filter.Status != model.SessionClosed {
		return nil, validationErr("status", "statut inconnu")
	}
	if q.LocationID != "" {
		id, err := uuid.Parse(q.LocationID)
		if err != nil {
			return nil, validationErr("location_id", "identifiant de boutique invalide")
		}
		filter.LocationID = &id
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	var (
		sessions []model.CashSession
		total    int64
	)
	err := s.store.guard(func() error {
		var err error
		sessions, total, err = s.store.Sessions.List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}

	data := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		data = append(data, toSessionResponse(s.currency, &sessions[i]))
	}
	return &dto.SessionListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Annotate ──────────────────────────────────────────────────────────────────

func (s *sessionService) Annotate(ctx context.Context, authorID *uuid.UUID, sessionID uuid.UUID, req dto.AnnotateSessionRequest) (*dto.AnnotationResponse, error) {
	note := strings.TrimSpace(req.Note)
	if note == "" {
		return nil, validationErr("note", "la note ne peut pas être vide")
	}
	err := s.store.guard(func() error {
		_, err := s.store.Sessions.FindByID(ctx, sessionID)
		return err
	})
	if isNotFound(err) {
		return nil, notFoundErr(msgSessionNotFound)
	}
	if err != nil {
		return nil, err
	}

	a := &model.SessionAnnotation{
		ID:        uuid.Must(uuid.NewV7()),
		SessionID: sessionID,
		AuthorID:  authorID,
		Note:      note,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.guard(func() error { return s.store.Sessions.AddAnnotation(ctx, a) }); err != nil {
		return nil, err
	}
	resp := toAnnotationResponse(a)
	return &resp, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
