// Package register reconciles the cash drawer of each cashier shift.
package register

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/packfinderz-pos/pkg/db"
	"github.com/angelmondragon/packfinderz-pos/pkg/db/models"
	"github.com/angelmondragon/packfinderz-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-pos/pkg/errors"
	"github.com/angelmondragon/packfinderz-pos/pkg/logger"
	"github.com/angelmondragon/packfinderz-pos/pkg/metrics"
	"github.com/angelmondragon/packfinderz-pos/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service runs the open/close lifecycle of register sessions.
type Service interface {
	GetStatus(ctx context.Context, userID uuid.UUID) (*Status, error)
	Open(ctx context.Context, userID uuid.UUID, input OpenInput) (*Result, error)
	Close(ctx context.Context, userID uuid.UUID, input CloseInput) (*Result, error)
	RequireOpenRegister(ctx context.Context, userID uuid.UUID) error
	History(ctx context.Context, userID uuid.UUID, limit int) ([]SessionView, error)
}

// OpenInput is the float counted into the drawer at the start of a shift.
type OpenInput struct {
	CashStart decimal.Decimal
	Notes     string
}

// CloseInput is the cash counted out of the drawer at the end of a shift.
type CloseInput struct {
	ActualCash decimal.Decimal
	Notes      string
}

// SessionView is the API shape of a register session.
type SessionView struct {
	ID           uuid.UUID            `json:"id"`
	UserID       uuid.UUID            `json:"user_id"`
	Status       enums.RegisterStatus `json:"status"`
	CashStart    decimal.Decimal      `json:"cash_start"`
	CashSales    *decimal.Decimal     `json:"cash_sales,omitempty"`
	ExpectedCash *decimal.Decimal     `json:"expected_cash,omitempty"`
	ActualCash   *decimal.Decimal     `json:"actual_cash,omitempty"`
	Difference   *decimal.Decimal     `json:"difference,omitempty"`
	Notes        string               `json:"notes,omitempty"`
	ClosingNotes string               `json:"closing_notes,omitempty"`
	OpenedAt     time.Time            `json:"opened_at"`
	ClosedAt     *time.Time           `json:"closed_at,omitempty"`
}

// Status describes the user's drawer right now. Cash figures are live while open.
type Status struct {
	IsOpen       bool             `json:"is_open"`
	Session      *SessionView     `json:"session,omitempty"`
	CashSales    *decimal.Decimal `json:"cash_sales,omitempty"`
	ExpectedCash *decimal.Decimal `json:"expected_cash,omitempty"`
}

// Result is the soft-failure outcome of an open or close.
type Result struct {
	types.Outcome
	Session *SessionView `json:"session,omitempty"`
}

type service struct {
	repo     Repository
	sales    CashSalesSource
	tx       txRunner
	required bool
	logg     *logger.Logger
	metrics  *metrics.OperationMetrics
	now      func() time.Time
}

// NewService wires the register ledger. required turns on RequireOpenRegister.
func NewService(repo Repository, sales CashSalesSource, tx txRunner, required bool, logg *logger.Logger, m *metrics.OperationMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("register repository required")
	}
	if sales == nil {
		return nil, fmt.Errorf("cash sales source required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:     repo,
		sales:    sales,
		tx:       tx,
		required: required,
		logg:     logg,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) observe(operation string, start time.Time, res *Result, err error) {
	s.metrics.Observe(operation, metrics.Outcome(res != nil && res.Error, err), time.Since(start))
}

func (s *service) reject(ctx context.Context, operation string, reason enums.RejectionReason, message string) *Result {
	ctx = s.logg.WithFields(ctx, map[string]any{"operation": operation, "reason": reason})
	s.logg.Info(ctx, "register.rejected")
	return &Result{Outcome: types.Reject(reason, message)}
}

func requireUser(userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	return nil
}

func (s *service) GetStatus(ctx context.Context, userID uuid.UUID) (*Status, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	open, err := s.repo.FindOpen(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load register")
	}
	if open == nil {
		return &Status{IsOpen: false}, nil
	}

	cashSales, err := s.sales.SumCashSince(ctx, userID, open.OpenedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum cash sales")
	}
	expected := open.CashStart.Add(cashSales)
	return &Status{
		IsOpen:       true,
		Session:      toView(open),
		CashSales:    &cashSales,
		ExpectedCash: &expected,
	}, nil
}

// Open starts a shift. A user holds at most one open session.
func (s *service) Open(ctx context.Context, userID uuid.UUID, input OpenInput) (res *Result, err error) {
	defer func(start time.Time) { s.observe("open", start, res, err) }(time.Now())

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if input.CashStart.IsNegative() {
		return s.reject(ctx, "open", enums.RejectionInvalidAmount, "opening cash cannot be negative"), nil
	}

	open, err := s.repo.FindOpen(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load register")
	}
	if open != nil {
		res = s.reject(ctx, "open", enums.RejectionAlreadyOpen, "register is already open")
		res.Session = toView(open)
		return res, nil
	}

	session := &models.RegisterSession{
		UserID:    userID,
		Status:    enums.RegisterStatusOpen,
		CashStart: input.CashStart,
		Notes:     strings.TrimSpace(input.Notes),
		OpenedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		if db.IsUniqueViolation(err, "") {
			return s.reject(ctx, "open", enums.RejectionAlreadyOpen, "register is already open"), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open register")
	}

	s.logg.Info(s.logg.WithField(ctx, "register_id", session.ID.String()), "register.opened")
	return &Result{Outcome: types.Accept("register opened"), Session: toView(session)}, nil
}

// Close ends the shift and records the variance between counted and expected cash.
func (s *service) Close(ctx context.Context, userID uuid.UUID, input CloseInput) (res *Result, err error) {
	defer func(start time.Time) { s.observe("close", start, res, err) }(time.Now())

	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if input.ActualCash.IsNegative() {
		return s.reject(ctx, "close", enums.RejectionInvalidAmount, "counted cash cannot be negative"), nil
	}

	var closed *models.RegisterSession
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		open, err := repo.FindOpen(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load register")
		}
		if open == nil {
			return nil
		}

		cashSales, err := s.salesIn(repo).SumCashSince(ctx, userID, open.OpenedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum cash sales")
		}
		expected := open.CashStart.Add(cashSales)
		difference := input.ActualCash.Sub(expected)
		closedAt := s.now()

		open.Status = enums.RegisterStatusClosed
		open.CashSales = decimal.NewNullDecimal(cashSales)
		open.CashEnd = decimal.NewNullDecimal(expected)
		open.ActualCash = decimal.NewNullDecimal(input.ActualCash)
		open.Difference = decimal.NewNullDecimal(difference)
		open.ClosingNotes = strings.TrimSpace(input.Notes)
		open.ClosedAt = &closedAt

		updated, err := repo.MarkClosed(ctx, open)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close register")
		}
		if updated {
			closed = open
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if closed == nil {
		return s.reject(ctx, "close", enums.RejectionNoOpenSession, "no open register session"), nil
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"register_id": closed.ID.String(),
		"difference":  closed.Difference.Decimal.String(),
	})
	s.logg.Info(ctx, "register.closed")
	return &Result{Outcome: types.Accept("register closed"), Session: toView(closed)}, nil
}

// salesIn reads cash sales through the transaction-bound repository when the
// sales source is the register repository itself.
func (s *service) salesIn(repo Repository) CashSalesSource {
	if _, shared := s.sales.(Repository); !shared {
		return s.sales
	}
	if src, ok := repo.(CashSalesSource); ok {
		return src
	}
	return s.sales
}

// RequireOpenRegister gates checkout on an open drawer when register tracking is on.
func (s *service) RequireOpenRegister(ctx context.Context, userID uuid.UUID) error {
	if !s.required {
		return nil
	}
	if err := requireUser(userID); err != nil {
		return err
	}
	open, err := s.repo.FindOpen(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load register")
	}
	if open == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "register must be open").
			WithDetails(map[string]any{"reason": enums.RejectionRegisterMustBeOpen})
	}
	return nil
}

// History lists past and current sessions, newest first.
func (s *service) History(ctx context.Context, userID uuid.UUID, limit int) ([]SessionView, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list registers")
	}
	out := make([]SessionView, 0, len(rows))
	for i := range rows {
		out = append(out, *toView(&rows[i]))
	}
	return out, nil
}

func nullable(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}

func toView(m *models.RegisterSession) *SessionView {
	return &SessionView{
		ID:           m.ID,
		UserID:       m.UserID,
		Status:       m.Status,
		CashStart:    m.CashStart,
		CashSales:    nullable(m.CashSales),
		ExpectedCash: nullable(m.CashEnd),
		ActualCash:   nullable(m.ActualCash),
		Difference:   nullable(m.Difference),
		Notes:        m.Notes,
		ClosingNotes: m.ClosingNotes,
		OpenedAt:     m.OpenedAt,
		ClosedAt:     m.ClosedAt,
	}
}
