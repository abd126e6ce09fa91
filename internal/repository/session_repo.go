package repository

import (
	"context"

	"mypostelma/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CloseFunc receives the locked open session and its full ledger, and fills
// in the closure fields on s. Returning an error rolls the close back.
type CloseFunc func(s *model.CashSession, movements []model.CashMovement) error

// SessionFilter narrows History queries. Zero values mean "any".
type SessionFilter struct {
	LocationID *uuid.UUID
	Status     model.SessionStatus
	Page       int
	Limit      int
}

type SessionRepository interface {
	// CreateOpen inserts an open session; a concurrent open on the same
	// location fails with ErrDuplicate.
	CreateOpen(ctx context.Context, s *model.CashSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error)
	FindOpenByLocation(ctx context.Context, locationID uuid.UUID) (*model.CashSession, error)
	// Close locks the session, folds its ledger through fn and persists the
	// closure. A session that is no longer open yields ErrSessionNotOpen.
	Close(ctx context.Context, id uuid.UUID, fn CloseFunc) (*model.CashSession, error)
	List(ctx context.Context, f SessionFilter) ([]model.CashSession, int64, error)
	AddAnnotation(ctx context.Context, a *model.SessionAnnotation) error
	ListAnnotations(ctx context.Context, sessionID uuid.UUID) ([]model.SessionAnnotation, error)
}

type sessionRepo struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &sessionRepo{db: db} }

func (r *sessionRepo) CreateOpen(ctx context.Context, s *model.CashSession) error {
	s.Status = model.SessionOpen
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(s).Error)
}

func (r *sessionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	if err := r.db.WithContext(ctx).Preload("Location").Where("id = ?", id).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *sessionRepo) FindOpenByLocation(ctx context.Context, locationID uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).Preload("Location").
		Where("location_id = ? AND status = ?", locationID, model.SessionOpen).
		First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *sessionRepo) Close(ctx context.Context, id uuid.UUID, fn CloseFunc) (*model.CashSession, error) {
	var closed model.CashSession
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Exclusive lock: appends (FOR SHARE) wait until this commits.
		var s model.CashSession
		if err := lockRow(tx, clause.LockingStrengthUpdate).Where("id = ?", id).First(&s).Error; err != nil {
			return err
		}
		if !s.IsOpen() {
			return ErrSessionNotOpen
		}

		var movs []model.CashMovement
		if err := tx.Where("session_id = ?", id).Order("created_at ASC, id ASC").Find(&movs).Error; err != nil {
			return err
		}
		if err := fn(&s, movs); err != nil {
			return err
		}

		res := tx.Model(&model.CashSession{}).
			Where("id = ? AND status = ?", id, model.SessionOpen).
			Updates(map[string]any{
				"status":                  model.SessionClosed,
				"closing_counted_balance": s.ClosingCountedBalance,
				"theoretical_balance":     s.TheoreticalBalance,
				"variance":                s.Variance,
				"variance_flag":           s.VarianceFlag,
				"total_sales":             s.TotalSales,
				"total_entries":           s.TotalEntries,
				"total_exits":             s.TotalExits,
				"sales_by_payment_method": s.SalesByPaymentMethod,
				"closing_notes":           s.ClosingNotes,
				"closed_by":               s.ClosedBy,
				"closed_at":               s.ClosedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrSessionNotOpen
		}
		s.Status = model.SessionClosed

		var loc model.Location
		if err := tx.Where("id = ?", s.LocationID).First(&loc).Error; err != nil {
			return err
		}
		s.Location = &loc
		closed = s
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return &closed, nil
}

func (r *sessionRepo) List(ctx context.Context, f SessionFilter) ([]model.CashSession, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > 100 {
		f.Limit = 20
	}

	filtered := func(db *gorm.DB) *gorm.DB {
		if f.LocationID != nil {
			db = db.Where("location_id = ?", *f.LocationID)
		}
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&model.CashSession{}).Scopes(filtered).Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var out []model.CashSession
	err := r.db.WithContext(ctx).Scopes(filtered).
		Preload("Location").
		Order("opened_at DESC, id DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&out).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return out, total, nil
}

func (r *sessionRepo) AddAnnotation(ctx context.Context, a *model.SessionAnnotation) error {
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r *sessionRepo) ListAnnotations(ctx context.Context, sessionID uuid.UUID) ([]model.SessionAnnotation, error) {
	var out []model.SessionAnnotation
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return out, nil
}
