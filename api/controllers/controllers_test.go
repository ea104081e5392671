package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/packfinderz-pos/api/middleware"
	"github.com/angelmondragon/packfinderz-pos/internal/cart"
	"github.com/angelmondragon/packfinderz-pos/internal/slots"
	"github.com/angelmondragon/packfinderz-pos/pkg/config"
	"github.com/angelmondragon/packfinderz-pos/pkg/enums"
	"github.com/angelmondragon/packfinderz-pos/pkg/money"
	"github.com/angelmondragon/packfinderz-pos/pkg/session"
)

type stubProducts map[uuid.UUID]*cart.Product

func (s stubProducts) FindProduct(ctx context.Context, id uuid.UUID) (*cart.Product, error) {
	p, ok := s[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

type noCoupons struct{}

func (noCoupons) FindCoupon(ctx context.Context, code string) (*cart.Discount, error) {
	return nil, nil
}

type zeroTax struct{}

func (zeroTax) Resolve(ctx context.Context, product *cart.Product, taxCtx cart.TaxContext) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

type fixture struct {
	engine    cart.Engine
	slots     slots.Manager
	store     *session.MemoryStore
	productID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	productID := uuid.New()
	products := stubProducts{productID: {ID: productID, Name: "Coffee", Price: decimal.NewFromInt(10)}}

	engine, err := cart.NewEngine(products, noCoupons{}, zeroTax{}, cart.Settings{
		Currency: money.Currency{Code: "USD", Symbol: "$", Decimals: 2},
	}, nil, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	mgr, err := slots.NewManager(3, nil, nil)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return &fixture{engine: engine, slots: mgr, store: session.NewMemoryStore(), productID: productID}
}

func (f *fixture) request(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.WithUserID(req.Context(), uuid.New())
	return req.WithContext(middleware.WithSession(ctx, f.store))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestCartAddItemUsesActiveSlot(t *testing.T) {
	f := newFixture(t)

	resp := httptest.NewRecorder()
	body := `{"product_id":"` + f.productID.String() + `","quantity":2,"attributes":[{"set":"Size","value":"Large"}]}`
	CartAddItem(f.engine, f.slots, nil).ServeHTTP(resp, f.request(http.MethodPost, "/api/v1/pos/cart/items", body))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var snap cart.Snapshot
	decodeData(t, resp, &snap)
	if snap.ItemCount != 2 || snap.TotalLabel != "$20.00" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(snap.Items) != 1 || len(snap.Items[0].Attributes) != 1 {
		t.Fatalf("expected one line with attributes, got %+v", snap.Items)
	}

	stored, err := f.engine.GetCart(context.Background(), f.store, slots.SlotPrefix(1))
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if stored.ItemCount != 2 {
		t.Fatalf("expected item stored under slot 1, got %d", stored.ItemCount)
	}
}

func TestCartFetchExplicitSlot(t *testing.T) {
	f := newFixture(t)
	if _, err := f.slots.CreateSlot(context.Background(), f.store); err != nil {
		t.Fatalf("create slot: %v", err)
	}
	if _, err := f.engine.AddToCart(context.Background(), f.store, slots.SlotPrefix(1), cart.AddItemInput{ProductID: f.productID}); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	resp := httptest.NewRecorder()
	CartFetch(f.engine, f.slots, nil).ServeHTTP(resp, f.request(http.MethodGet, "/api/v1/pos/cart?slot=1", ""))
	var snap cart.Snapshot
	decodeData(t, resp, &snap)
	if snap.ItemCount != 1 {
		t.Fatalf("expected slot 1 cart, got %d items", snap.ItemCount)
	}

	resp = httptest.NewRecorder()
	CartFetch(f.engine, f.slots, nil).ServeHTTP(resp, f.request(http.MethodGet, "/api/v1/pos/cart", ""))
	snap = cart.Snapshot{}
	decodeData(t, resp, &snap)
	if snap.ItemCount != 0 {
		t.Fatalf("active slot 2 should be empty, got %d items", snap.ItemCount)
	}
}

func TestCartFetchUnknownSlot(t *testing.T) {
	f := newFixture(t)
	resp := httptest.NewRecorder()
	CartFetch(f.engine, f.slots, nil).ServeHTTP(resp, f.request(http.MethodGet, "/api/v1/pos/cart?slot=7", ""))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	CartFetch(f.engine, f.slots, nil).ServeHTTP(resp, f.request(http.MethodGet, "/api/v1/pos/cart?slot=abc", ""))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartVendorScope(t *testing.T) {
	f := newFixture(t)
	storeID := uuid.New()
	if _, err := f.engine.AddToCart(context.Background(), f.store, cart.VendorPrefix(storeID), cart.AddItemInput{ProductID: f.productID, Quantity: 3}); err != nil {
		t.Fatalf("add to cart: %v", err)
	}

	resp := httptest.NewRecorder()
	CartFetch(f.engine, f.slots, nil).ServeHTTP(resp, f.request(http.MethodGet, "/api/v1/pos/cart?store="+storeID.String(), ""))
	var snap cart.Snapshot
	decodeData(t, resp, &snap)
	if snap.ItemCount != 3 {
		t.Fatalf("expected vendor cart, got %d items", snap.ItemCount)
	}
}

func TestCartUnknownCouponIsSoftFailure(t *testing.T) {
	f := newFixture(t)
	resp := httptest.NewRecorder()
	CartApplyCoupon(f.engine, f.slots, nil).ServeHTTP(resp, f.request(http.MethodPost, "/api/v1/pos/cart/coupon", `{"code":"NOPE"}`))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var res cart.Result
	decodeData(t, resp, &res)
	if !res.Rejected(enums.RejectionCouponNotFound) {
		t.Fatalf("expected coupon rejection, got %+v", res.Outcome)
	}
	if res.Cart == nil {
		t.Fatal("expected cart alongside rejection")
	}
}

func TestCartUpdateItemValidatesPath(t *testing.T) {
	f := newFixture(t)
	resp := httptest.NewRecorder()
	req := withURLParam(f.request(http.MethodPatch, "/api/v1/pos/cart/items/x", `{"quantity":2}`), "productId", "x")
	CartUpdateItem(f.engine, f.slots, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartQuantityUpperBound(t *testing.T) {
	f := newFixture(t)

	resp := httptest.NewRecorder()
	body := `{"product_id":"` + f.productID.String() + `","quantity":9223372036854775807}`
	CartAddItem(f.engine, f.slots, nil).ServeHTTP(resp, f.request(http.MethodPost, "/api/v1/pos/cart/items", body))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized add got %d: %s", resp.Code, resp.Body.String())
	}

	resp = httptest.NewRecorder()
	req := withURLParam(f.request(http.MethodPatch, "/api/v1/pos/cart/items/"+f.productID.String(), `{"quantity":100000}`), "productId", f.productID.String())
	CartUpdateItem(f.engine, f.slots, nil).ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for oversized update got %d", resp.Code)
	}

	stored, err := f.engine.GetCart(context.Background(), f.store, slots.SlotPrefix(1))
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if stored.ItemCount != 0 {
		t.Fatalf("oversized quantities must not reach the cart, got %d", stored.ItemCount)
	}
}

func TestCartAddItemUnknownProduct(t *testing.T) {
	f := newFixture(t)
	resp := httptest.NewRecorder()
	body := `{"product_id":"` + uuid.NewString() + `"}`
	CartAddItem(f.engine, f.slots, nil).ServeHTTP(resp, f.request(http.MethodPost, "/api/v1/pos/cart/items", body))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCartInvalidPaymentMethod(t *testing.T) {
	f := newFixture(t)
	resp := httptest.NewRecorder()
	CartUpdatePaymentMethod(f.engine, f.slots, nil).ServeHTTP(resp, f.request(http.MethodPut, "/api/v1/pos/cart/payment-method", `{"payment_method":"barter"}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCartUpdateCustomer(t *testing.T) {
	f := newFixture(t)
	customer := uuid.New()

	resp := httptest.NewRecorder()
	CartUpdateCustomer(f.engine, f.slots, nil).ServeHTTP(resp, f.request(http.MethodPut, "/api/v1/pos/cart/customer", `{"customer_id":"`+customer.String()+`"}`))
	var snap cart.Snapshot
	decodeData(t, resp, &snap)
	if snap.CustomerID == nil || *snap.CustomerID != customer {
		t.Fatalf("expected customer %s, got %v", customer, snap.CustomerID)
	}

	resp = httptest.NewRecorder()
	CartUpdateCustomer(f.engine, f.slots, nil).ServeHTTP(resp, f.request(http.MethodPut, "/api/v1/pos/cart/customer", `{"customer_id":null}`))
	snap = cart.Snapshot{}
	decodeData(t, resp, &snap)
	if snap.CustomerID != nil {
		t.Fatalf("null customer_id should detach, got %v", snap.CustomerID)
	}

	resp = httptest.NewRecorder()
	CartUpdateCustomer(f.engine, f.slots, nil).ServeHTTP(resp, f.request(http.MethodPut, "/api/v1/pos/cart/customer", `{}`))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("missing customer_id should be rejected, got %d", resp.Code)
	}
}

func TestCartMissingSession(t *testing.T) {
	f := newFixture(t)
	resp := httptest.NewRecorder()
	CartFetch(f.engine, f.slots, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/pos/cart", nil))
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}

func TestSlotsLifecycle(t *testing.T) {
	f := newFixture(t)

	resp := httptest.NewRecorder()
	SlotsCreate(f.slots, nil).ServeHTTP(resp, f.request(http.MethodPost, "/api/v1/pos/slots", ""))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", resp.Code)
	}
	var created slots.Result
	decodeData(t, resp, &created)
	if created.ActiveSlot != 2 || len(created.Slots) != 2 {
		t.Fatalf("unexpected create result %+v", created)
	}

	resp = httptest.NewRecorder()
	SlotsSetActive(f.slots, nil).ServeHTTP(resp, f.request(http.MethodPut, "/api/v1/pos/slots/active", `{"slot":1}`))
	var active slots.Result
	decodeData(t, resp, &active)
	if active.Error || active.ActiveSlot != 1 {
		t.Fatalf("unexpected set active result %+v", active)
	}

	resp = httptest.NewRecorder()
	SlotsList(f.slots, f.engine, nil).ServeHTTP(resp, f.request(http.MethodGet, "/api/v1/pos/slots", ""))
	var listed struct {
		Slots      []int           `json:"slots"`
		ActiveSlot int             `json:"active_slot"`
		Orders     []slots.Summary `json:"orders"`
	}
	decodeData(t, resp, &listed)
	if len(listed.Orders) != 2 || !listed.Orders[0].IsActive {
		t.Fatalf("unexpected listing %+v", listed)
	}

	resp = httptest.NewRecorder()
	SlotsClose(f.slots, f.engine, nil).ServeHTTP(resp, withURLParam(f.request(http.MethodDelete, "/api/v1/pos/slots/1", ""), "slot", "1"))
	var closed slots.Result
	decodeData(t, resp, &closed)
	if closed.Error || closed.ActiveSlot != 2 {
		t.Fatalf("unexpected close result %+v", closed)
	}

	resp = httptest.NewRecorder()
	SlotsClose(f.slots, f.engine, nil).ServeHTTP(resp, withURLParam(f.request(http.MethodDelete, "/api/v1/pos/slots/2", ""), "slot", "2"))
	var last slots.Result
	decodeData(t, resp, &last)
	if !last.Rejected(enums.RejectionCannotCloseLastSlot) {
		t.Fatalf("expected last slot rejection, got %+v", last.Outcome)
	}

	resp = httptest.NewRecorder()
	SlotsComplete(f.slots, nil).ServeHTTP(resp, withURLParam(f.request(http.MethodPost, "/api/v1/pos/slots/2/complete", ""), "slot", "2"))
	var completed slots.Result
	decodeData(t, resp, &completed)
	if completed.Error || len(completed.Slots) != 1 {
		t.Fatalf("completing the last slot should keep it, got %+v", completed)
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": stubPinger{}, "redis": nil}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": stubPinger{err: errors.New("down")}}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}
