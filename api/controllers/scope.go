package controllers

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/angelmondragon/packfinderz-pos/api/middleware"
	"github.com/angelmondragon/packfinderz-pos/internal/cart"
	"github.com/angelmondragon/packfinderz-pos/internal/slots"
	pkgerrors "github.com/angelmondragon/packfinderz-pos/pkg/errors"
	"github.com/angelmondragon/packfinderz-pos/pkg/logger"
	"github.com/angelmondragon/packfinderz-pos/pkg/session"
	"github.com/google/uuid"
)

// cartScope is the session store and cart prefix a cart request operates on.
type cartScope struct {
	store  session.Store
	prefix string
}

func sessionStore(r *http.Request) (session.Store, error) {
	store := middleware.SessionFromContext(r.Context())
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "terminal session missing")
	}
	return store, nil
}

// resolveCartScope picks the cart prefix: ?store=<uuid> for a vendor-scoped cart, ?slot=N for
// an existing order slot, otherwise the active slot.
func resolveCartScope(r *http.Request, mgr slots.Manager, logg *logger.Logger) (*cartScope, *http.Request, error) {
	store, err := sessionStore(r)
	if err != nil {
		return nil, r, err
	}

	query := r.URL.Query()
	var prefix string
	switch {
	case strings.TrimSpace(query.Get("store")) != "":
		storeID, err := uuid.Parse(strings.TrimSpace(query.Get("store")))
		if err != nil {
			return nil, r, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "store must be a uuid").
				WithDetails(map[string]any{"field": "store"})
		}
		prefix = cart.VendorPrefix(storeID)
	case strings.TrimSpace(query.Get("slot")) != "":
		slot, err := strconv.Atoi(strings.TrimSpace(query.Get("slot")))
		if err != nil || slot < 1 {
			return nil, r, pkgerrors.New(pkgerrors.CodeValidation, "slot must be a positive integer").
				WithDetails(map[string]any{"field": "slot"})
		}
		listed, err := mgr.ListSlots(r.Context(), store)
		if err != nil {
			return nil, r, err
		}
		if !slices.Contains(listed.Slots, slot) {
			return nil, r, pkgerrors.New(pkgerrors.CodeNotFound, "order slot not found")
		}
		prefix = slots.SlotPrefix(slot)
	default:
		active, err := mgr.GetActiveSlot(r.Context(), store)
		if err != nil {
			return nil, r, err
		}
		prefix = slots.SlotPrefix(active)
	}

	if logg != nil {
		r = r.WithContext(logg.WithSessionPrefix(r.Context(), prefix))
	}
	return &cartScope{store: store, prefix: prefix}, r, nil
}
