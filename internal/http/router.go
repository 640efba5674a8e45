package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/Kuritho/vendo-finder-final/internal/middleware"
)

type RouterOptions struct {
	Logger           *zap.Logger
	CORSAllowOrigins []string
	DeviceStore      sessions.Store
}

func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	// outer -> inner
	r.Use(middleware.CorrelationID)
	r.Use(middleware.CORS(opts.CORSAllowOrigins))
	r.Use(middleware.Device(opts.DeviceStore))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recover(logger))

	r.Get("/health", h.Health)

	r.Route("/api/machines", func(r chi.Router) {
		r.Get("/", h.ListMachines)

		r.Route("/{machineId}", func(r chi.Router) {
			r.Get("/catalog", h.GetCatalog)
			r.Post("/reservations", h.Reserve)
			r.Get("/orders", h.ShowOrders)
			r.Delete("/orders", h.HideOrders)

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.GetCart)
				r.Patch("/items/{index}", h.UpdateCartItem)
				r.Delete("/items/{index}", h.RemoveCartItem)
				r.Post("/checkout", h.Checkout)
				r.Post("/receipt/dismiss", h.DismissReceipt)
			})
		})
	})

	return r
}
