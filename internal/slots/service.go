// Package slots lets one terminal hold several in-progress orders, each in its own cart.
package slots

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/angelmondragon/packfinderz-pos/internal/cart"
	"github.com/angelmondragon/packfinderz-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-pos/pkg/errors"
	"github.com/angelmondragon/packfinderz-pos/pkg/logger"
	"github.com/angelmondragon/packfinderz-pos/pkg/metrics"
	"github.com/angelmondragon/packfinderz-pos/pkg/session"
	"github.com/angelmondragon/packfinderz-pos/pkg/types"
	"github.com/shopspring/decimal"
)

const (
	keySlots      = "pos_order_slots"
	keyActiveSlot = "pos_active_slot"

	// DefaultMaxSlots is the slot capacity when none is configured.
	DefaultMaxSlots = 10
)

// SlotPrefix is the cart session prefix of a slot.
func SlotPrefix(slot int) string {
	return fmt.Sprintf("order_%d_", slot)
}

// CartClearer empties the cart behind a session prefix.
type CartClearer interface {
	ClearCart(ctx context.Context, store session.Store, prefix string) error
}

// CartReader computes the cart behind a session prefix.
type CartReader interface {
	GetCart(ctx context.Context, store session.Store, prefix string) (*cart.Snapshot, error)
}

// Result is the outcome of a slot transition along with the resulting slot set.
type Result struct {
	types.Outcome
	Slots      []int `json:"slots"`
	ActiveSlot int   `json:"active_slot"`
}

// Summary is one row of the multi-order overview.
type Summary struct {
	Slot       int             `json:"slot"`
	IsActive   bool            `json:"is_active"`
	ItemCount  int             `json:"item_count"`
	Total      decimal.Decimal `json:"total"`
	TotalLabel string          `json:"total_label"`
}

// Manager tracks the slot set and active slot of a terminal session.
type Manager interface {
	GetActiveSlot(ctx context.Context, store session.Store) (int, error)
	ListSlots(ctx context.Context, store session.Store) (*Result, error)
	CreateSlot(ctx context.Context, store session.Store) (*Result, error)
	SetActiveSlot(ctx context.Context, store session.Store, slot int) (*Result, error)
	CloseSlot(ctx context.Context, store session.Store, slot int, carts CartClearer) (*Result, error)
	CloseSlotAfterCheckout(ctx context.Context, store session.Store, slot int) (*Result, error)
	GetSlotsWithCarts(ctx context.Context, store session.Store, carts CartReader) ([]Summary, error)
}

type manager struct {
	maxSlots int
	logg     *logger.Logger
	metrics  *metrics.OperationMetrics
}

// NewManager builds a slot manager with the given capacity.
func NewManager(maxSlots int, logg *logger.Logger, m *metrics.OperationMetrics) (Manager, error) {
	if maxSlots < 1 {
		return nil, fmt.Errorf("max slots must be at least 1")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &manager{maxSlots: maxSlots, logg: logg, metrics: m}, nil
}

type slotState struct {
	slots  []int
	active int
}

func (s *slotState) has(slot int) bool {
	return slices.Contains(s.slots, slot)
}

func (s *slotState) lowest() int {
	return slices.Min(s.slots)
}

func (s *slotState) remove(slot int) {
	s.slots = slices.DeleteFunc(s.slots, func(n int) bool { return n == slot })
}

func (s *slotState) result(outcome types.Outcome) *Result {
	return &Result{Outcome: outcome, Slots: slices.Clone(s.slots), ActiveSlot: s.active}
}

// load reads the slot set, repairing an empty set or a dangling active pointer.
func (m *manager) load(ctx context.Context, store session.Store) (*slotState, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session store required")
	}
	st := &slotState{}
	if _, err := store.Get(ctx, keySlots, &st.slots); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read slot session")
	}
	if _, err := store.Get(ctx, keyActiveSlot, &st.active); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read slot session")
	}

	dirty := false
	if len(st.slots) == 0 {
		st.slots = []int{1}
		dirty = true
	}
	if !st.has(st.active) {
		st.active = st.lowest()
		dirty = true
	}
	if dirty {
		if err := m.save(ctx, store, st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (m *manager) save(ctx context.Context, store session.Store, st *slotState) error {
	if err := store.Put(ctx, keySlots, st.slots); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write slot session")
	}
	if err := store.Put(ctx, keyActiveSlot, st.active); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write slot session")
	}
	return nil
}

func (m *manager) observe(operation string, start time.Time, res *Result, err error) {
	m.metrics.Observe(operation, metrics.Outcome(res != nil && res.Error, err), time.Since(start))
}

func (m *manager) reject(ctx context.Context, st *slotState, operation string, reason enums.RejectionReason, message string) *Result {
	ctx = m.logg.WithFields(ctx, map[string]any{"operation": operation, "reason": reason})
	m.logg.Info(ctx, "slots.rejected")
	return st.result(types.Reject(reason, message))
}

// GetActiveSlot returns the active slot, snapping to the lowest slot when the stored
// pointer no longer names a member.
func (m *manager) GetActiveSlot(ctx context.Context, store session.Store) (int, error) {
	st, err := m.load(ctx, store)
	if err != nil {
		return 0, err
	}
	return st.active, nil
}

func (m *manager) ListSlots(ctx context.Context, store session.Store) (*Result, error) {
	st, err := m.load(ctx, store)
	if err != nil {
		return nil, err
	}
	return st.result(types.Accept("")), nil
}

// CreateSlot allocates the next slot number and makes it active.
func (m *manager) CreateSlot(ctx context.Context, store session.Store) (res *Result, err error) {
	defer func(start time.Time) { m.observe("create_slot", start, res, err) }(time.Now())

	st, err := m.load(ctx, store)
	if err != nil {
		return nil, err
	}
	if len(st.slots) >= m.maxSlots {
		return m.reject(ctx, st, "create_slot", enums.RejectionMaxSlotsReached,
			fmt.Sprintf("maximum of %d open orders reached", m.maxSlots)), nil
	}

	next := slices.Max(st.slots) + 1
	st.slots = append(st.slots, next)
	st.active = next
	if err := m.save(ctx, store, st); err != nil {
		return nil, err
	}
	return st.result(types.Accept(fmt.Sprintf("order %d created", next))), nil
}

func (m *manager) SetActiveSlot(ctx context.Context, store session.Store, slot int) (res *Result, err error) {
	defer func(start time.Time) { m.observe("set_active_slot", start, res, err) }(time.Now())

	st, err := m.load(ctx, store)
	if err != nil {
		return nil, err
	}
	if !st.has(slot) {
		return m.reject(ctx, st, "set_active_slot", enums.RejectionSlotNotFound, "order slot not found"), nil
	}
	st.active = slot
	if err := m.save(ctx, store, st); err != nil {
		return nil, err
	}
	return st.result(types.Accept("")), nil
}

// CloseSlot discards a slot and its cart. The last remaining slot cannot be closed.
func (m *manager) CloseSlot(ctx context.Context, store session.Store, slot int, carts CartClearer) (res *Result, err error) {
	defer func(start time.Time) { m.observe("close_slot", start, res, err) }(time.Now())

	if carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart engine required")
	}
	st, err := m.load(ctx, store)
	if err != nil {
		return nil, err
	}
	if !st.has(slot) {
		return m.reject(ctx, st, "close_slot", enums.RejectionSlotNotFound, "order slot not found"), nil
	}
	if len(st.slots) == 1 {
		return m.reject(ctx, st, "close_slot", enums.RejectionCannotCloseLastSlot, "the last open order cannot be closed"), nil
	}

	if err := carts.ClearCart(ctx, store, SlotPrefix(slot)); err != nil {
		return nil, err
	}
	return m.drop(ctx, store, st, slot)
}

// CloseSlotAfterCheckout removes a slot whose cart was consumed by checkout. The last
// slot is left in place.
func (m *manager) CloseSlotAfterCheckout(ctx context.Context, store session.Store, slot int) (res *Result, err error) {
	defer func(start time.Time) { m.observe("close_slot_after_checkout", start, res, err) }(time.Now())

	st, err := m.load(ctx, store)
	if err != nil {
		return nil, err
	}
	if !st.has(slot) {
		return m.reject(ctx, st, "close_slot_after_checkout", enums.RejectionSlotNotFound, "order slot not found"), nil
	}
	if len(st.slots) == 1 {
		return st.result(types.Accept("")), nil
	}
	return m.drop(ctx, store, st, slot)
}

func (m *manager) drop(ctx context.Context, store session.Store, st *slotState, slot int) (*Result, error) {
	st.remove(slot)
	if st.active == slot {
		st.active = st.lowest()
	}
	if err := m.save(ctx, store, st); err != nil {
		return nil, err
	}
	return st.result(types.Accept(fmt.Sprintf("order %d closed", slot))), nil
}

// GetSlotsWithCarts summarises the cart of every slot.
func (m *manager) GetSlotsWithCarts(ctx context.Context, store session.Store, carts CartReader) ([]Summary, error) {
	if carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart engine required")
	}
	st, err := m.load(ctx, store)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(st.slots))
	for _, slot := range st.slots {
		snap, err := carts.GetCart(ctx, store, SlotPrefix(slot))
		if err != nil {
			return nil, err
		}
		out = append(out, Summary{
			Slot:       slot,
			IsActive:   slot == st.active,
			ItemCount:  snap.ItemCount,
			Total:      snap.Total,
			TotalLabel: snap.TotalLabel,
		})
	}
	return out, nil
}
