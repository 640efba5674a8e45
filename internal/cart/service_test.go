package cart

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kuritho/vendo-finder-final/internal/catalog"
	"github.com/Kuritho/vendo-finder-final/internal/clients"
	"github.com/Kuritho/vendo-finder-final/internal/events"
	"github.com/Kuritho/vendo-finder-final/internal/reservation"
)

type fakeVendos struct {
	name string
	err  error
}

func (f fakeVendos) GetVendo(context.Context, string) (clients.VendoInfo, error) {
	return clients.VendoInfo{Name: f.name}, f.err
}

func (f fakeVendos) GetOrders(context.Context, string) ([]clients.OrderHistoryEntry, error) {
	return nil, nil
}

type fakeProducts struct {
	getVariant func(ctx context.Context, id int) (clients.Variant, error)
}

func (f fakeProducts) GetVariant(ctx context.Context, id int) (clients.Variant, error) {
	if f.getVariant == nil {
		return clients.Variant{}, errors.New("no detail")
	}
	return f.getVariant(ctx, id)
}

type fakeOrders struct {
	createOrder func(ctx context.Context, lines []clients.OrderLine) (clients.OrderConfirmation, error)
	calls       [][]clients.OrderLine
}

func (f *fakeOrders) CreateOrder(ctx context.Context, lines []clients.OrderLine) (clients.OrderConfirmation, error) {
	f.calls = append(f.calls, lines)
	return f.createOrder(ctx, lines)
}

type capturePublisher struct {
	mu       sync.Mutex
	payloads []events.OrderPlacedPayload
	metas    []events.EventMeta
	err      error
}

func (c *capturePublisher) PublishOrderPlaced(_ context.Context, meta events.EventMeta, p events.OrderPlacedPayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metas = append(c.metas, meta)
	c.payloads = append(c.payloads, p)
	return c.err
}

// brokenStore fails every read.
type brokenStore struct{ reservation.Store }

func (brokenStore) Get(context.Context, string) (reservation.Set, error) {
	return nil, reservation.ErrCorruptSet
}

func accepted(code string) func(context.Context, []clients.OrderLine) (clients.OrderConfirmation, error) {
	return func(context.Context, []clients.OrderLine) (clients.OrderConfirmation, error) {
		return clients.OrderConfirmation{Code: code, OrderDate: "2024-03-05T14:30:00", TotalAmount: decimal.RequireFromString("20.00")}, nil
	}
}

type fixture struct {
	engine    *reservation.Engine
	orders    *fakeOrders
	publisher *capturePublisher
	svc       *Service
}

func newFixture(t *testing.T, seed reservation.Set) fixture {
	t.Helper()
	store := reservation.NewMemoryStores().ForDevice("dev-1")
	if seed != nil {
		require.NoError(t, store.Put(context.Background(), "4", seed))
	}
	products := fakeProducts{getVariant: func(_ context.Context, id int) (clients.Variant, error) {
		return clients.Variant{Description: "detail of product"}, nil
	}}
	loader := catalog.NewLoader(fakeVendos{name: "Osorio Diaper Vendo"}, products, nil, 4)
	orders := &fakeOrders{createOrder: accepted("ORD-1")}
	pub := &capturePublisher{}
	return fixture{
		engine:    reservation.NewEngine(store),
		orders:    orders,
		publisher: pub,
		svc:       NewService(loader, orders, pub, nil),
	}
}

func TestLoad(t *testing.T) {
	f := newFixture(t, reservation.Set{
		{ProductID: 58, ProductName: "Pampers Small", Price: "10.00", Quantity: 2},
		{ProductID: 61, ProductName: "Wipes", Price: "2.50", Quantity: 1},
	})

	st := f.svc.Load(context.Background(), f.engine, "4")

	assert.Equal(t, PhaseReady, st.Phase)
	assert.Equal(t, "Osorio Diaper Vendo", st.MachineName)
	require.Len(t, st.Lines, 2)
	assert.Equal(t, "detail of product", st.Lines[0].Description)
	assert.Equal(t, "20.00", st.Lines[0].TotalPrice)
	assert.Equal(t, "22.50", st.TotalAmount.StringFixed(2))
	assert.Equal(t, 3, st.TotalItems)
	assert.Equal(t, "/machines/4/catalog", st.BackLink)
}

func TestLoadStoreFailureIsFailedPhase(t *testing.T) {
	loader := catalog.NewLoader(fakeVendos{name: "x"}, fakeProducts{}, nil, 1)
	svc := NewService(loader, &fakeOrders{}, nil, nil)

	st := svc.Load(context.Background(), reservation.NewEngine(brokenStore{}), "4")
	assert.Equal(t, PhaseFailed, st.Phase)
	assert.NotEmpty(t, st.Error)
	assert.Equal(t, "/machines/4/catalog", st.BackLink)
}

func TestLoadUnknownMachineDegrades(t *testing.T) {
	store := reservation.NewMemoryStores().ForDevice("dev-1")
	require.NoError(t, store.Put(context.Background(), "77", reservation.Set{{ProductID: 1, Price: "1.00", Quantity: 1}}))
	loader := catalog.NewLoader(fakeVendos{err: clients.ErrUpstream}, fakeProducts{}, nil, 1)
	svc := NewService(loader, &fakeOrders{}, nil, nil)

	st := svc.Load(context.Background(), reservation.NewEngine(store), "77")
	assert.Equal(t, PhaseReady, st.Phase)
	assert.Equal(t, "Vendo 77", st.MachineName)
	require.Len(t, st.Lines, 1)
	assert.Equal(t, reservation.NoDescription, st.Lines[0].Description)
}

func TestUpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, reservation.Set{
		{ProductID: 58, Price: "10.00", Quantity: 1},
		{ProductID: 59, Price: "5.00", Quantity: 1},
	})
	st := f.svc.Load(ctx, f.engine, "4")
	require.Contains(t, st.Details, 58)

	next, err := f.svc.UpdateQuantity(ctx, st, f.engine, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, next.Items[0].Quantity)

	next, err = f.svc.UpdateQuantity(ctx, next, f.engine, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, "35.00", next.TotalAmount.StringFixed(2))
	assert.Equal(t, 1, st.Items[0].Quantity, "previous state must not change")

	next, err = f.svc.Remove(ctx, next, f.engine, 0)
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.NotContains(t, next.Details, 58)
	assert.Contains(t, st.Details, 58)

	_, err = f.svc.Remove(ctx, next, f.engine, 5)
	require.ErrorIs(t, err, reservation.ErrLineNotFound)
}

func TestSubmitSuccessClearsStorage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, reservation.Set{{ProductID: 58, ProductName: "Pampers Small", Price: "10.00", Quantity: 2}})
	st := f.svc.Load(ctx, f.engine, "4")

	st, err := f.svc.Submit(ctx, st, f.engine, events.EventMeta{CorrelationID: "cid"}, "dev-1")
	require.NoError(t, err)

	assert.Equal(t, PhaseReceipt, st.Phase)
	require.NotNil(t, st.Receipt)
	assert.Equal(t, "ORD-1", st.Receipt.Code)
	assert.Equal(t, "2024-03-05T14:30:00", st.Receipt.OrderDate)
	require.NotNil(t, st.Receipt.PurchasedAt)
	assert.Equal(t, 14, st.Receipt.PurchasedAt.Hour())
	assert.Equal(t, "20.00", st.Receipt.TotalAmount.StringFixed(2))
	require.Len(t, st.Receipt.Lines, 1)
	assert.True(t, st.Empty())
	assert.Empty(t, st.Details)

	require.Len(t, f.orders.calls, 1)
	assert.Equal(t, []clients.OrderLine{{ProductVariantID: 58, Quantity: 2, Price: 10}}, f.orders.calls[0])

	stored, err := f.engine.Load(ctx, "4")
	require.NoError(t, err)
	assert.Empty(t, stored)

	require.Len(t, f.publisher.payloads, 1)
	assert.Equal(t, "ORD-1", f.publisher.payloads[0].OrderCode)
	assert.Equal(t, "dev-1", f.publisher.payloads[0].DeviceID)
	assert.Equal(t, "4", f.publisher.metas[0].PartitionKey)

	st = f.svc.Dismiss(st)
	assert.Equal(t, PhaseReady, st.Phase)
	assert.Nil(t, st.Receipt)
	assert.True(t, st.Empty())
}

func TestSubmitFailureLeavesSetUntouched(t *testing.T) {
	tests := map[string]struct {
		err        error
		wantNotice string
	}{
		"rejected with message": {
			err:        &clients.RejectedError{Service: "remote", Message: "Insufficient stock"},
			wantNotice: "Insufficient stock",
		},
		"bad status": {
			err:        &clients.StatusError{Service: "remote", StatusCode: 500},
			wantNotice: "Failed to create order",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			seed := reservation.Set{{ProductID: 58, Price: "10.00", Quantity: 2}}
			f := newFixture(t, seed)
			f.orders.createOrder = func(context.Context, []clients.OrderLine) (clients.OrderConfirmation, error) {
				return clients.OrderConfirmation{}, tc.err
			}
			st := f.svc.Load(ctx, f.engine, "4")

			st, err := f.svc.Submit(ctx, st, f.engine, events.EventMeta{}, "dev-1")
			require.ErrorIs(t, err, ErrOrderRejected)
			assert.Equal(t, PhaseReady, st.Phase)
			assert.Equal(t, tc.wantNotice, st.Notice)
			assert.Len(t, st.Items, 1)

			stored, err := f.engine.Load(ctx, "4")
			require.NoError(t, err)
			assert.Equal(t, seed, stored)
			assert.Empty(t, f.publisher.payloads)
			assert.Len(t, f.orders.calls, 1, "no automatic retry")
		})
	}
}

func TestSubmitEmptyCart(t *testing.T) {
	f := newFixture(t, nil)
	st := f.svc.Load(context.Background(), f.engine, "4")

	st, err := f.svc.Submit(context.Background(), st, f.engine, events.EventMeta{}, "dev-1")
	require.ErrorIs(t, err, ErrEmptyCart)
	assert.Equal(t, "No items to purchase", st.Notice)
	assert.Empty(t, f.orders.calls)
}

func TestSubmitUnknownPriceIsRejectedLocally(t *testing.T) {
	f := newFixture(t, reservation.Set{{ProductID: 61, Price: "", Quantity: 1}})
	st := f.svc.Load(context.Background(), f.engine, "4")

	next, err := f.svc.Submit(context.Background(), st, f.engine, events.EventMeta{}, "dev-1")
	require.ErrorIs(t, err, ErrUnpricedItem)
	assert.NotErrorIs(t, err, ErrOrderRejected)
	assert.Equal(t, PhaseReady, next.Phase)
	assert.Empty(t, f.orders.calls)
}

func TestSubmitPublishFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(t, reservation.Set{{ProductID: 58, Price: "10.00", Quantity: 1}})
	f.publisher.err = errors.New("broker down")
	st := f.svc.Load(context.Background(), f.engine, "4")

	st, err := f.svc.Submit(context.Background(), st, f.engine, events.EventMeta{}, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, PhaseReceipt, st.Phase)
}

func TestParseOrderDate(t *testing.T) {
	tests := map[string]bool{
		"2024-03-05T14:30:00Z":        true,
		"2024-03-05T14:30:00.1234567": true,
		"2024-03-05 14:30:00":         true,
		"2024-03-05":                  true,
		"05/03/2024":                  false,
		"":                            false,
	}
	for raw, ok := range tests {
		t.Run(raw, func(t *testing.T) {
			assert.Equal(t, ok, parseOrderDate(raw) != nil)
		})
	}
}

func TestOperationsRequireReadyPhase(t *testing.T) {
	f := newFixture(t, reservation.Set{{ProductID: 58, Price: "10.00", Quantity: 1}})
	st := Reduce(State{}, LoadStarted{MachineID: "4"})

	_, err := f.svc.Submit(context.Background(), st, f.engine, events.EventMeta{}, "dev-1")
	require.ErrorIs(t, err, ErrNotReady)
	_, err = f.svc.UpdateQuantity(context.Background(), st, f.engine, 0, 2)
	require.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, st, f.svc.Dismiss(st))
}
