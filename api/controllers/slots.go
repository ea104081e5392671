package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/packfinderz-pos/api/responses"
	"github.com/angelmondragon/packfinderz-pos/api/validators"
	"github.com/angelmondragon/packfinderz-pos/internal/cart"
	"github.com/angelmondragon/packfinderz-pos/internal/slots"
	pkgerrors "github.com/angelmondragon/packfinderz-pos/pkg/errors"
	"github.com/angelmondragon/packfinderz-pos/pkg/logger"
)

type slotsResponse struct {
	*slots.Result
	Orders []slots.Summary `json:"orders,omitempty"`
}

// SlotsList returns the slot set with a cart summary per slot.
func SlotsList(mgr slots.Manager, engine cart.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mgr == nil || engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}
		store, err := sessionStore(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listed, err := mgr.ListSlots(r.Context(), store)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		summaries, err := mgr.GetSlotsWithCarts(r.Context(), store, engine)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, slotsResponse{Result: listed, Orders: summaries})
	}
}

func SlotsCreate(mgr slots.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mgr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}
		store, err := sessionStore(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := mgr.CreateSlot(r.Context(), store)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if res.Error {
			responses.WriteSuccess(w, res)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, res)
	}
}

type setActiveSlotRequest struct {
	Slot int `json:"slot" validate:"required,min=1"`
}

func SlotsSetActive(mgr slots.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mgr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}
		store, err := sessionStore(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body setActiveSlotRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := mgr.SetActiveSlot(r.Context(), store, body.Slot)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

// SlotsClose discards a slot along with its cart.
func SlotsClose(mgr slots.Manager, engine cart.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mgr == nil || engine == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}
		store, err := sessionStore(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		slot, err := validators.ParsePathInt(chi.URLParam(r, "slot"), "slot")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := mgr.CloseSlot(r.Context(), store, slot, engine)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

// SlotsComplete retires a slot whose order was placed by checkout. The cart is left to checkout.
func SlotsComplete(mgr slots.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mgr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "slot service unavailable"))
			return
		}
		store, err := sessionStore(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		slot, err := validators.ParsePathInt(chi.URLParam(r, "slot"), "slot")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := mgr.CloseSlotAfterCheckout(r.Context(), store, slot)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}
