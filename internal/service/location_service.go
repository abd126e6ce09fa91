package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"mypostelma/internal/dto"
	"mypostelma/internal/model"
	"mypostelma/internal/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/rs/zerolog/log"
)

// LocationService maintains the registry of tills/boutiques.
type LocationService interface {
	Create(ctx context.Context, req dto.CreateLocationRequest) (*dto.LocationResponse, error)
	List(ctx context.Context, activeOnly bool) ([]dto.LocationResponse, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*dto.LocationResponse, error)
}

type locationService struct {
	store Store
	now   Clock
}

func NewLocationService(store Store, now Clock) LocationService {
	if now == nil {
		now = time.Now
	}
	return &locationService{store: store, now: now}
}

func (s *locationService) Create(ctx context.Context, req dto.CreateLocationRequest) (*dto.LocationResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validationErr("name", "le nom de la boutique est obligatoire")
	}
	source := req.Code
	if strings.TrimSpace(source) == "" {
		source = name
	}
	code := slug.Make(source)
	if code == "" {
		return nil, validationErr("code", "code de boutique invalide")
	}

	loc := &model.Location{
		ID:        uuid.New(),
		Code:      code,
		Name:      name,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}
	err := s.store.guard(func() error { return s.store.Locations.Create(ctx, loc) })
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflictErr(msgLocationCodeTaken, err)
		}
		return nil, err
	}
	log.Info().Str("location_id", loc.ID.String()).Str("code", code).Msg("location created")
	resp := toLocationResponse(loc)
	return &resp, nil
}

func (s *locationService) List(ctx context.Context, activeOnly bool) ([]dto.LocationResponse, error) {
	var locs []model.Location
	err := s.store.guard(func() error {
		var err error
		locs, err = s.store.Locations.List(ctx, activeOnly)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]dto.LocationResponse, 0, len(locs))
	for i := range locs {
		out = append(out, toLocationResponse(&locs[i]))
	}
	return out, nil
}

// SetActive only gates future opens; a session already open stays open.
func (s *locationService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*dto.LocationResponse, error) {
	var loc *model.Location
	err := s.store.guard(func() error {
		if err := s.store.Locations.SetActive(ctx, id, active); err != nil {
			return err
		}
		var err error
		loc, err = s.store.Locations.FindByID(ctx, id)
		return err
	})
	if isNotFound(err) {
		return nil, notFoundErr(msgLocationNotFound)
	}
	if err != nil {
		return nil, err
	}
	resp := toLocationResponse(loc)
	return &resp, nil
}
