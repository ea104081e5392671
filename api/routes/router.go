package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/packfinderz-pos/api/controllers"
	"github.com/angelmondragon/packfinderz-pos/api/middleware"
	"github.com/angelmondragon/packfinderz-pos/internal/cart"
	"github.com/angelmondragon/packfinderz-pos/internal/register"
	"github.com/angelmondragon/packfinderz-pos/internal/slots"
	"github.com/angelmondragon/packfinderz-pos/pkg/config"
	"github.com/angelmondragon/packfinderz-pos/pkg/logger"
	"github.com/angelmondragon/packfinderz-pos/pkg/session"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	sessions session.Factory,
	cartEngine cart.Engine,
	slotManager slots.Manager,
	registerService register.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisP,
		}))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/pos", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.TerminalSession(sessions, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/register", func(r chi.Router) {
			r.Get("/", controllers.RegisterStatus(registerService, logg))
			r.Post("/open", controllers.RegisterOpen(registerService, logg))
			r.Post("/close", controllers.RegisterClose(registerService, logg))
			r.Get("/history", controllers.RegisterHistory(registerService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireOpenRegister(registerService, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(cartEngine, slotManager, logg))
				r.Delete("/", controllers.CartClear(cartEngine, slotManager, logg))
				r.Post("/items", controllers.CartAddItem(cartEngine, slotManager, logg))
				r.Patch("/items/{productId}", controllers.CartUpdateItem(cartEngine, slotManager, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(cartEngine, slotManager, logg))
				r.Post("/coupon", controllers.CartApplyCoupon(cartEngine, slotManager, logg))
				r.Delete("/coupon", controllers.CartRemoveCoupon(cartEngine, slotManager, logg))
				r.Put("/shipping", controllers.CartUpdateShipping(cartEngine, slotManager, logg))
				r.Put("/discount", controllers.CartUpdateDiscount(cartEngine, slotManager, logg))
				r.Delete("/discount", controllers.CartRemoveDiscount(cartEngine, slotManager, logg))
				r.Put("/customer", controllers.CartUpdateCustomer(cartEngine, slotManager, logg))
				r.Put("/payment-method", controllers.CartUpdatePaymentMethod(cartEngine, slotManager, logg))
				r.Delete("/customer-payment", controllers.CartResetCustomerPayment(cartEngine, slotManager, logg))
			})

			r.Route("/slots", func(r chi.Router) {
				r.Get("/", controllers.SlotsList(slotManager, cartEngine, logg))
				r.Post("/", controllers.SlotsCreate(slotManager, logg))
				r.Put("/active", controllers.SlotsSetActive(slotManager, logg))
				r.Delete("/{slot}", controllers.SlotsClose(slotManager, cartEngine, logg))
				r.Post("/{slot}/complete", controllers.SlotsComplete(slotManager, logg))
			})
		})
	})

	return r
}
