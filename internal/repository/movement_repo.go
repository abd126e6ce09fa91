package repository

import (
	"context"

	"mypostelma/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MovementRepository is append-only: there is deliberately no Update or Delete.
type MovementRepository interface {
	// Append inserts m if its session exists and is open, atomically with
	// that check. Missing session: ErrNotFound. Closed session: ErrSessionNotOpen.
	Append(ctx context.Context, m *model.CashMovement) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error)
	// EachBySession streams the ledger in order without loading it whole.
	// fn must not issue queries of its own: the cursor holds a connection.
	EachBySession(ctx context.Context, sessionID uuid.UUID, fn func(model.CashMovement) error) error
}

type movementRepo struct{ db *gorm.DB }

func NewMovementRepository(db *gorm.DB) MovementRepository { return &movementRepo{db: db} }

func (r *movementRepo) Append(ctx context.Context, m *model.CashMovement) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Shared lock: concurrent appends proceed together, a close waits for them.
		var s model.CashSession
		err := lockRow(tx, clause.LockingStrengthShare).
			Select("id", "status").
			Where("id = ?", m.SessionID).
			First(&s).Error
		if err != nil {
			return err
		}
		if !s.IsOpen() {
			return ErrSessionNotOpen
		}
		return tx.Create(m).Error
	})
	return translate(err)
}

func (r *movementRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error) {
	var movs []model.CashMovement
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&movs).Error
	if err != nil {
		return nil, translate(err)
	}
	return movs, nil
}

func (r *movementRepo) EachBySession(ctx context.Context, sessionID uuid.UUID, fn func(model.CashMovement) error) error {
	db := r.db.WithContext(ctx)
	rows, err := db.Model(&model.CashMovement{}).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Rows()
	if err != nil {
		return translate(err)
	}
	defer rows.Close()

	for rows.Next() {
		var m model.CashMovement
		if err := db.ScanRows(rows, &m); err != nil {
			return translate(err)
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return translate(rows.Err())
}
