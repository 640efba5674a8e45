package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Kuritho/vendo-finder-final/internal/cart"
	"github.com/Kuritho/vendo-finder-final/internal/catalog"
	"github.com/Kuritho/vendo-finder-final/internal/events"
	"github.com/Kuritho/vendo-finder-final/internal/geo"
	"github.com/Kuritho/vendo-finder-final/internal/middleware"
	"github.com/Kuritho/vendo-finder-final/internal/reservation"
	"github.com/Kuritho/vendo-finder-final/internal/session"
	"github.com/Kuritho/vendo-finder-final/internal/vendo"
)

type Handler struct {
	logger   *zap.Logger
	locator  *geo.Locator[vendo.Machine]
	loader   *catalog.Loader
	carts    *cart.Service
	stores   reservation.Stores
	sessions *session.Registry
}

type Deps struct {
	Logger   *zap.Logger
	Locator  *geo.Locator[vendo.Machine]
	Loader   *catalog.Loader
	Carts    *cart.Service
	Stores   reservation.Stores
	Sessions *session.Registry
}

func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		logger:   logger,
		locator:  d.Locator,
		loader:   d.Loader,
		carts:    d.Carts,
		stores:   d.Stores,
		sessions: d.Sessions,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListMachines filters the machine map. Without name or distance the full
// list is returned with the default maximum distance.
func (h *Handler) ListMachines(w http.ResponseWriter, r *http.Request) {
	q, reset, err := parseLocateQuery(r.URL.Query())
	if err != nil {
		middleware.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if reset {
		writeJSON(w, http.StatusOK, h.locator.Reset(q.Reference))
		return
	}
	writeJSON(w, http.StatusOK, h.locator.Search(q))
}

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	machineID := chi.URLParam(r, "machineId")
	dev := h.sessions.Acquire(middleware.GetDeviceID(r.Context()))
	defer dev.Release()

	st := h.loader.Open(r.Context(), machineID)
	dev.SetCatalog(st)
	writeJSON(w, http.StatusOK, st)
}

type reserveRequest struct {
	ProductID int `json:"productId"`
}

func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	machineID := chi.URLParam(r, "machineId")
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == 0 {
		middleware.WriteError(w, r, http.StatusBadRequest, "productId is required")
		return
	}

	deviceID := middleware.GetDeviceID(r.Context())
	dev := h.sessions.Acquire(deviceID)
	defer dev.Release()

	st, ok := dev.Catalog(machineID)
	if !ok {
		st = h.loader.Open(r.Context(), machineID)
	}

	engine := reservation.NewEngine(h.stores.ForDevice(deviceID))
	next, err := catalog.Reserve(r.Context(), st, engine, req.ProductID)
	dev.SetCatalog(next)
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrOutOfStock):
			writeScreenError(w, r, http.StatusConflict, next.Notice, next)
		case errors.Is(err, catalog.ErrUnknownProduct):
			middleware.WriteError(w, r, http.StatusNotFound, "product not found")
		default:
			h.logger.Error("reserve", zap.String("machine_id", machineID), zap.Error(err))
			middleware.WriteError(w, r, http.StatusInternalServerError, "could not save reservation")
		}
		return
	}
	writeJSON(w, http.StatusOK, next)
}

// ShowOrders opens the order history panel with a fresh fetch.
func (h *Handler) ShowOrders(w http.ResponseWriter, r *http.Request) {
	machineID := chi.URLParam(r, "machineId")
	dev := h.sessions.Acquire(middleware.GetDeviceID(r.Context()))
	defer dev.Release()

	st, ok := dev.Catalog(machineID)
	if !ok {
		st = h.loader.Open(r.Context(), machineID)
	}
	st = h.loader.ToggleOrders(r.Context(), catalog.Reduce(st, catalog.OrdersHidden{}))
	dev.SetCatalog(st)
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) HideOrders(w http.ResponseWriter, r *http.Request) {
	machineID := chi.URLParam(r, "machineId")
	dev := h.sessions.Acquire(middleware.GetDeviceID(r.Context()))
	defer dev.Release()

	st, ok := dev.Catalog(machineID)
	if !ok {
		st = h.loader.Open(r.Context(), machineID)
	}
	st = catalog.Reduce(st, catalog.OrdersHidden{})
	dev.SetCatalog(st)
	writeJSON(w, http.StatusOK, st)
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	machineID := chi.URLParam(r, "machineId")
	deviceID := middleware.GetDeviceID(r.Context())
	dev := h.sessions.Acquire(deviceID)
	defer dev.Release()

	st := h.carts.Load(r.Context(), h.engine(deviceID), machineID)
	dev.SetCart(st)
	writeJSON(w, http.StatusOK, st)
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	index, ok := lineIndex(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		middleware.WriteError(w, r, http.StatusBadRequest, "quantity is required")
		return
	}

	h.editCart(w, r, false, func(st cart.State, engine *reservation.Engine) (cart.State, error) {
		return h.carts.UpdateQuantity(r.Context(), st, engine, index, *req.Quantity)
	})
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	index, ok := lineIndex(w, r)
	if !ok {
		return
	}
	h.editCart(w, r, false, func(st cart.State, engine *reservation.Engine) (cart.State, error) {
		return h.carts.Remove(r.Context(), st, engine, index)
	})
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	deviceID := middleware.GetDeviceID(r.Context())
	meta := events.EventMeta{
		CorrelationID: middleware.GetCorrelationID(r.Context()),
		CausationID:   chimw.GetReqID(r.Context()),
	}
	// Submit exactly what is stored now, not what an older cart screen showed.
	h.editCart(w, r, true, func(st cart.State, engine *reservation.Engine) (cart.State, error) {
		return h.carts.Submit(r.Context(), st, engine, meta, deviceID)
	})
}

func (h *Handler) DismissReceipt(w http.ResponseWriter, r *http.Request) {
	machineID := chi.URLParam(r, "machineId")
	dev := h.sessions.Acquire(middleware.GetDeviceID(r.Context()))
	defer dev.Release()

	st, ok := dev.Cart(machineID)
	if !ok {
		middleware.WriteError(w, r, http.StatusNotFound, "no receipt to dismiss")
		return
	}
	st = h.carts.Dismiss(st)
	dev.SetCart(st)
	writeJSON(w, http.StatusOK, st)
}

// editCart runs op against the device's current cart screen, loading it
// first when fresh is set, the device has none yet, or it is not ready.
func (h *Handler) editCart(w http.ResponseWriter, r *http.Request, fresh bool, op func(cart.State, *reservation.Engine) (cart.State, error)) {
	machineID := chi.URLParam(r, "machineId")
	deviceID := middleware.GetDeviceID(r.Context())
	dev := h.sessions.Acquire(deviceID)
	defer dev.Release()

	engine := h.engine(deviceID)
	st, ok := dev.Cart(machineID)
	if fresh || !ok || st.Phase != cart.PhaseReady {
		st = h.carts.Load(r.Context(), engine, machineID)
		dev.SetCart(st)
	}
	if st.Phase == cart.PhaseFailed {
		writeScreenError(w, r, http.StatusOK, st.Error, st)
		return
	}

	next, err := op(st, engine)
	dev.SetCart(next)
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrLineNotFound):
			middleware.WriteError(w, r, http.StatusNotFound, "cart line not found")
		case errors.Is(err, cart.ErrEmptyCart), errors.Is(err, cart.ErrUnpricedItem):
			writeScreenError(w, r, http.StatusUnprocessableEntity, next.Notice, next)
		case errors.Is(err, cart.ErrOrderRejected):
			writeScreenError(w, r, http.StatusBadGateway, next.Notice, next)
		case errors.Is(err, cart.ErrNotReady):
			writeScreenError(w, r, http.StatusConflict, "cart is busy", next)
		default:
			h.logger.Error("cart edit", zap.String("machine_id", machineID), zap.Error(err))
			middleware.WriteError(w, r, http.StatusInternalServerError, "could not update cart")
		}
		return
	}
	writeJSON(w, http.StatusOK, next)
}

func (h *Handler) engine(deviceID string) *reservation.Engine {
	return reservation.NewEngine(h.stores.ForDevice(deviceID))
}

func lineIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		middleware.WriteError(w, r, http.StatusBadRequest, "invalid line index")
		return 0, false
	}
	return index, true
}

func parseLocateQuery(v url.Values) (geo.Query, bool, error) {
	var q geo.Query

	lat, lng := v.Get("lat"), v.Get("lng")
	if lat != "" || lng != "" {
		la, errLat := strconv.ParseFloat(lat, 64)
		lo, errLng := strconv.ParseFloat(lng, 64)
		if errLat != nil || errLng != nil {
			return q, false, errors.New("lat and lng must both be numbers")
		}
		q.Reference = &geo.Coordinate{Latitude: la, Longitude: lo}
	}

	q.Name = v.Get("name")
	if raw := v.Get("maxDistanceKm"); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil || !geo.ValidRadius(d) {
			return q, false, errors.New("maxDistanceKm must be a non-negative number")
		}
		q.MaxDistanceKm = &d
	}

	reset := q.Name == "" && q.MaxDistanceKm == nil
	return q, reset, nil
}

type screenError struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlationId,omitempty"`
	State         any    `json:"state"`
}

// writeScreenError reports a one-shot notice together with the screen state
// the client should keep showing.
func writeScreenError(w http.ResponseWriter, r *http.Request, status int, msg string, state any) {
	writeJSON(w, status, screenError{
		Error:         msg,
		CorrelationID: middleware.GetCorrelationID(r.Context()),
		State:         state,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
