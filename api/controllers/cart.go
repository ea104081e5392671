package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-pos/api/responses"
	"github.com/angelmondragon/packfinderz-pos/api/validators"
	"github.com/angelmondragon/packfinderz-pos/internal/cart"
	"github.com/angelmondragon/packfinderz-pos/internal/slots"
	"github.com/angelmondragon/packfinderz-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/packfinderz-pos/pkg/errors"
	"github.com/angelmondragon/packfinderz-pos/pkg/logger"
	"github.com/angelmondragon/packfinderz-pos/pkg/types"
)

const maxDescriptionLength = 255

type cartAction func(r *http.Request, scope *cartScope) (any, error)

// cartHandler resolves the cart scope and renders whatever the action returns.
func cartHandler(engine cart.Engine, mgr slots.Manager, logg *logger.Logger, action cartAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil || mgr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		scope, r, err := resolveCartScope(r, mgr, logg)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payload, err := action(r, scope)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}

func CartFetch(engine cart.Engine, mgr slots.Manager, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(engine, mgr, logg, func(r *http.Request, scope *cartScope) (any, error) {
		return engine.GetCart(r.Context(), scope.store, scope.prefix)
	})
}

// CartClear empties the cart but keeps the selected customer and payment method.
func CartClear(engine cart.Engine, mgr slots.Manager, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(engine, mgr, logg, func(r *http.Request, scope *cartScope) (any, error) {
		if err := engine.ClearCart(r.Context(), scope.store, scope.prefix); err != nil {
			return nil, err
		}
		return engine.GetCart(r.Context(), scope.store, scope.prefix)
	})
}

type attributePayload struct {
	Set   string `json:"set" validate:"required,max=100"`
	Value string `json:"value" validate:"required,max=100"`
}

type addItemRequest struct {
	ProductID  uuid.UUID          `json:"product_id" validate:"required"`
	Quantity   int                `json:"quantity" validate:"lte=99999"`
	Attributes []attributePayload `json:"attributes" validate:"omitempty,dive"`
}

func (req addItemRequest) toInput() (cart.AddItemInput, error) {
	attrs := make([]cart.Attribute, 0, len(req.Attributes))
	for _, a := range req.Attributes {
		attr, err := cart.NewAttribute(a.Set, a.Value)
		if err != nil {
			return cart.AddItemInput{}, err
		}
		attrs = append(attrs, attr)
	}
	return cart.AddItemInput{ProductID: req.ProductID, Quantity: req.Quantity, Attributes: attrs}, nil
}

func CartAddItem(engine cart.Engine, mgr slots.Manager, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(engine, mgr, logg, func(r *http.Request, scope *cartScope) (any, error) {
		var body addItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		input, err := body.toInput()
		if err != nil {
			return nil, err
		}
		return engine.AddToCart(r.Context(), scope.store, scope.prefix, input)
	})
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"lte=99999"`
}

func CartUpdateItem(engine cart.Engine, mgr slots.Manager, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(engine, mgr, logg, func(r *http.Request, scope *cartScope) (any, error) {
		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			return nil, err
		}
		var body updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return engine.UpdateQuantity(r.Context(), scope.store, scope.prefix, productID, body.Quantity)
	})
}

func CartRemoveItem(engine cart.Engine, mgr slots.Manager, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(engine, mgr, logg, func(r *http.Request, scope *cartScope) (any, error) {
		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			return nil, err
		}
		return engine.RemoveFromCart(r.Context(), scope.store, scope.prefix, productID)
	})
}

type couponRequest struct {
	Code string `json:"code" validate:"max=64"`
}

func CartApplyCoupon(engine cart.Engine, mgr slots.Manager, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(engine, mgr, logg, func(r *http.Request, scope *cartScope) (any, error) {
		var body couponRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return engine.ApplyCoupon(r.Context(), scope.store, scope.prefix, body.Code)
	})
}

func CartRemoveCoupon(engine cart.Engine, mgr slots.Manager, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(engine, mgr, logg, func(r *http.Request, scope *cartScope) (any, error) {
		return engine.RemoveCoupon(r.Context(), scope.store, scope.prefix)
	})
}

type shippingRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func CartUpdateShipping(engine cart.Engine, mgr slots.Manager, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(engine, mgr, logg, func(r *http.Request, scope *cartScope) (any, error) {
		var body shippingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return engine.UpdateShippingAmount(r.Context(), scope.store, scope.prefix, body.Amount)
	})
}

type manualDiscountRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type" validate:"required"`
	Description string          `json:"description"`
}

func CartUpdateDiscount(engine cart.Engine, mgr slots.Manager, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(engine, mgr, logg, func(r *http.Request, scope *cartScope) (any, error) {
		var body manualDiscountRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return engine.UpdateManualDiscount(r.Context(), scope.store, scope.prefix, cart.ManualDiscountInput{
			Amount:      body.Amount,
			Type:        enums.DiscountType(body.Type),
			Description: validators.SanitizeString(body.Description, maxDescriptionLength),
		})
	})
}

func CartRemoveDiscount(engine cart.Engine, mgr slots.Manager, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(engine, mgr, logg, func(r *http.Request, scope *cartScope) (any, error) {
		return engine.RemoveManualDiscount(r.Context(), scope.store, scope.prefix)
	})
}

type customerRequest struct {
	CustomerID types.NullableUUID `json:"customer_id"`
}

// CartUpdateCustomer selects the customer; a null customer_id clears it.
func CartUpdateCustomer(engine cart.Engine, mgr slots.Manager, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(engine, mgr, logg, func(r *http.Request, scope *cartScope) (any, error) {
		var body customerRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		if !body.CustomerID.Valid {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer_id is required")
		}
		return engine.UpdateCustomer(r.Context(), scope.store, scope.prefix, body.CustomerID.Value)
	})
}

type paymentMethodRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
}

func CartUpdatePaymentMethod(engine cart.Engine, mgr slots.Manager, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(engine, mgr, logg, func(r *http.Request, scope *cartScope) (any, error) {
		var body paymentMethodRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return engine.UpdatePaymentMethod(r.Context(), scope.store, scope.prefix, enums.PaymentMethod(body.PaymentMethod))
	})
}

func CartResetCustomerPayment(engine cart.Engine, mgr slots.Manager, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(engine, mgr, logg, func(r *http.Request, scope *cartScope) (any, error) {
		return engine.ResetCustomerAndPayment(r.Context(), scope.store, scope.prefix)
	})
}
