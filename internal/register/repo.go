package register

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/packfinderz-pos/internal/repo"
	"github.com/angelmondragon/packfinderz-pos/pkg/db/models"
	"github.com/angelmondragon/packfinderz-pos/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Repository persists register sessions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOpen(ctx context.Context, userID uuid.UUID) (*models.RegisterSession, error)
	Create(ctx context.Context, session *models.RegisterSession) error
	MarkClosed(ctx context.Context, session *models.RegisterSession) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.RegisterSession, error)
}

// CashSalesSource sums cash tendered at the till.
type CashSalesSource interface {
	SumCashSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error)
}

// GormRepository implements Repository and CashSalesSource.
type GormRepository struct {
	repo.Base
}

// NewRepository builds the repository; cash sales are read from pos_orders.
func NewRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{Base: repo.NewBase(db)}
}

func (r *GormRepository) WithTx(tx *gorm.DB) Repository {
	return &GormRepository{Base: r.Base.WithTx(tx)}
}

// FindOpen returns the user's open session or nil.
func (r *GormRepository) FindOpen(ctx context.Context, userID uuid.UUID) (*models.RegisterSession, error) {
	var row models.RegisterSession
	found, err := r.First(ctx, &row, "user_id = ? AND status = ?", userID, enums.RegisterStatusOpen)
	if err != nil {
		return nil, fmt.Errorf("find open register: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &row, nil
}

func (r *GormRepository) Create(ctx context.Context, session *models.RegisterSession) error {
	return r.DB(ctx).Create(session).Error
}

// MarkClosed writes the closing figures. It reports false when the session was no longer open.
func (r *GormRepository) MarkClosed(ctx context.Context, session *models.RegisterSession) (bool, error) {
	res := r.DB(ctx).
		Model(&models.RegisterSession{}).
		Where("id = ? AND status = ?", session.ID, enums.RegisterStatusOpen).
		Updates(map[string]any{
			"status":        enums.RegisterStatusClosed,
			"cash_sales":    session.CashSales,
			"cash_end":      session.CashEnd,
			"actual_cash":   session.ActualCash,
			"difference":    session.Difference,
			"closing_notes": session.ClosingNotes,
			"closed_at":     session.ClosedAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("close register: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ListByUser returns the user's sessions, newest first.
func (r *GormRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.RegisterSession, error) {
	var rows []models.RegisterSession
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("opened_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list registers: %w", err)
	}
	return rows, nil
}

// SumCashSince totals cash orders rung up by the user at or after since.
func (r *GormRepository) SumCashSince(ctx context.Context, userID uuid.UUID, since time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.DB(ctx).
		Model(&models.POSOrder{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("user_id = ? AND payment_method = ? AND created_at >= ?", userID, enums.PaymentMethodCash, since).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum cash sales: %w", err)
	}
	return total, nil
}
