package service

import (
	"context"
	"sort"
	"sync"

	"mypostelma/internal/model"
	"mypostelma/internal/repository"

	"github.com/google/uuid"
)

// ── In-memory repositories ───────────────────────────────────────────────────
// One mutex guards all three so Append/Close see a consistent view, the way
// row locks do in PostgreSQL.

type memStore struct {
	mu          sync.Mutex
	sessions    map[uuid.UUID]*model.CashSession
	movements   []model.CashMovement
	locations   map[uuid.UUID]*model.Location
	annotations []model.SessionAnnotation
	failWith    error // returned by every call when set
}

func newMemStore() *memStore {
	return &memStore{
		sessions:  make(map[uuid.UUID]*model.CashSession),
		locations: make(map[uuid.UUID]*model.Location),
	}
}

func (m *memStore) store() Store {
	return Store{
		Sessions:  memSessionRepo{m},
		Movements: memMovementRepo{m},
		Locations: memLocationRepo{m},
	}
}

func (m *memStore) addLocation(code string, active bool) *model.Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := &model.Location{ID: uuid.New(), Code: code, Name: code, Active: active}
	m.locations[l.ID] = l
	return l
}

func (m *memStore) movementCount(sessionID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, mv := range m.movements {
		if mv.SessionID == sessionID {
			n++
		}
	}
	return n
}

type memSessionRepo struct{ m *memStore }

func (r memSessionRepo) CreateOpen(_ context.Context, s *model.CashSession) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return r.m.failWith
	}
	for _, existing := range r.m.sessions {
		if existing.LocationID == s.LocationID && existing.IsOpen() {
			return repository.ErrDuplicate
		}
	}
	s.Status = model.SessionOpen
	cp := *s
	r.m.sessions[s.ID] = &cp
	return nil
}

func (r memSessionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CashSession, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return nil, r.m.failWith
	}
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	cp.Location = r.m.locations[s.LocationID]
	return &cp, nil
}

func (r memSessionRepo) FindOpenByLocation(_ context.Context, locationID uuid.UUID) (*model.CashSession, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return nil, r.m.failWith
	}
	for _, s := range r.m.sessions {
		if s.LocationID == locationID && s.IsOpen() {
			cp := *s
			cp.Location = r.m.locations[s.LocationID]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memSessionRepo) Close(_ context.Context, id uuid.UUID, fn repository.CloseFunc) (*model.CashSession, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return nil, r.m.failWith
	}
	s, ok := r.m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !s.IsOpen() {
		return nil, repository.ErrSessionNotOpen
	}
	cp := *s
	if err := fn(&cp, r.m.ledgerLocked(id)); err != nil {
		return nil, err
	}
	cp.Status = model.SessionClosed
	r.m.sessions[id] = &cp
	out := cp
	out.Location = r.m.locations[cp.LocationID]
	return &out, nil
}

func (r memSessionRepo) List(_ context.Context, f repository.SessionFilter) ([]model.CashSession, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var all []model.CashSession
	for _, s := range r.m.sessions {
		if f.LocationID != nil && s.LocationID != *f.LocationID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		all = append(all, *s)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].OpenedAt.After(all[j].OpenedAt) })
	total := int64(len(all))
	start := (f.Page - 1) * f.Limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := min(start+f.Limit, len(all))
	return all[start:end], total, nil
}

func (r memSessionRepo) AddAnnotation(_ context.Context, a *model.SessionAnnotation) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.annotations = append(r.m.annotations, *a)
	return nil
}

func (r memSessionRepo) ListAnnotations(_ context.Context, sessionID uuid.UUID) ([]model.SessionAnnotation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.SessionAnnotation
	for _, a := range r.m.annotations {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

// ledgerLocked returns the ordered ledger of a session (caller holds mu).
func (m *memStore) ledgerLocked(sessionID uuid.UUID) []model.CashMovement {
	var out []model.CashMovement
	for _, mv := range m.movements {
		if mv.SessionID == sessionID {
			out = append(out, mv)
		}
	}
	return out
}

type memMovementRepo struct{ m *memStore }

func (r memMovementRepo) Append(_ context.Context, mv *model.CashMovement) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return r.m.failWith
	}
	s, ok := r.m.sessions[mv.SessionID]
	if !ok {
		return repository.ErrNotFound
	}
	if !s.IsOpen() {
		return repository.ErrSessionNotOpen
	}
	r.m.movements = append(r.m.movements, *mv)
	return nil
}

func (r memMovementRepo) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.CashMovement, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return nil, r.m.failWith
	}
	return r.m.ledgerLocked(sessionID), nil
}

func (r memMovementRepo) EachBySession(ctx context.Context, sessionID uuid.UUID, fn func(model.CashMovement) error) error {
	movs, err := r.ListBySession(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, mv := range movs {
		if err := fn(mv); err != nil {
			return err
		}
	}
	return nil
}

type memLocationRepo struct{ m *memStore }

func (r memLocationRepo) Create(_ context.Context, l *model.Location) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.locations {
		if existing.Code == l.Code {
			return repository.ErrDuplicate
		}
	}
	cp := *l
	r.m.locations[l.ID] = &cp
	return nil
}

func (r memLocationRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Location, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.failWith != nil {
		return nil, r.m.failWith
	}
	l, ok := r.m.locations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (r memLocationRepo) List(_ context.Context, activeOnly bool) ([]model.Location, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []model.Location
	for _, l := range r.m.locations {
		if activeOnly && !l.Active {
			continue
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r memLocationRepo) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	l, ok := r.m.locations[id]
	if !ok {
		return repository.ErrNotFound
	}
	l.Active = active
	return nil
}

var (
	_ repository.SessionRepository  = memSessionRepo{}
	_ repository.MovementRepository = memMovementRepo{}
	_ repository.LocationRepository = memLocationRepo{}
)

// ── Closure queue spy ────────────────────────────────────────────────────────

type spyQueue struct {
	mu       sync.Mutex
	enqueued []uuid.UUID
	err      error
}

func (q *spyQueue) EnqueueClosureReport(_ context.Context, id uuid.UUID) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, id)
	return q.err
}
