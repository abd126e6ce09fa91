package service

import (
	"errors"
	"fmt"

	"mypostelma/internal/infra"
	"mypostelma/internal/repository"
)

// Error kinds. Match with errors.Is; the concrete *Error carries the
// operator-facing message.
var (
	ErrValidation         = errors.New("validation error")
	ErrConflict           = errors.New("conflict")
	ErrInvalidState       = errors.New("invalid state")
	ErrNotFound           = errors.New("not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Error is a domain error: Kind is one of the sentinels above, Msg is shown
// to the operator, Field names the offending input for validation errors.
type Error struct {
	Kind  error
	Msg   string
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func validationErr(field, msg string) error {
	return &Error{Kind: ErrValidation, Field: field, Msg: msg}
}

func conflictErr(msg string, cause error) error {
	return &Error{Kind: ErrConflict, Msg: msg, Err: cause}
}

func invalidStateErr(msg string, cause error) error {
	return &Error{Kind: ErrInvalidState, Msg: msg, Err: cause}
}

// overflowErr reports a ledger whose totals no longer fit in minor units.
func overflowErr(cause error) error {
	return &Error{Kind: ErrValidation, Msg: msgAmountOutOfRange, Err: cause}
}

func notFoundErr(msg string) error {
	return &Error{Kind: ErrNotFound, Msg: msg}
}

// Operator-facing messages.
const (
	msgSessionNotFound     = "session de caisse introuvable"
	msgSessionAlreadyOpen  = "une session de caisse est déjà ouverte pour cette boutique"
	msgSessionNotOpen      = "la session de caisse n'est pas ouverte"
	msgMovementRejected    = "impossible d'enregistrer un mouvement sur une session fermée ou inexistante"
	msgLocationNotFound    = "boutique introuvable"
	msgLocationInactive    = "cette boutique est désactivée"
	msgLocationCodeTaken   = "ce code de boutique existe déjà"
	msgStorageUnavailable  = "le stockage est momentanément indisponible, réessayez"
	msgAmountTooPrecise    = "le montant a plus de décimales que la devise n'en permet"
	msgAmountOutOfRange    = "le montant est hors limites"
	msgAmountRequired      = "le montant est obligatoire"
	msgDescriptionRequired = "une description est obligatoire pour une entrée ou une sortie de caisse"
)

// storageErr maps infrastructure failures onto ErrStorageUnavailable and
// passes everything else through for the caller to classify.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, infra.ErrCircuitOpen) || repository.IsUnavailable(err) {
		return &Error{Kind: ErrStorageUnavailable, Msg: msgStorageUnavailable, Err: err}
	}
	return err
}

// Store bundles the repositories the caisse services share. Breaker is
// optional; when set every repository call goes through it.
type Store struct {
	Sessions  repository.SessionRepository
	Movements repository.MovementRepository
	Locations repository.LocationRepository
	Breaker   *infra.CircuitBreaker
}

func (st Store) guard(fn func() error) error {
	if st.Breaker == nil {
		return storageErr(fn())
	}
	return storageErr(st.Breaker.Execute(fn))
}

// NewStorageBreaker builds a breaker that trips on unreachable storage only.
func NewStorageBreaker(cfg infra.CircuitBreakerConfig) *infra.CircuitBreaker {
	cfg.IsFailure = repository.IsUnavailable
	return infra.NewCircuitBreaker(cfg)
}

func isNotFound(err error) bool { return errors.Is(err, repository.ErrNotFound) }
