package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kuritho/vendo-finder-final/internal/clients"
	"github.com/Kuritho/vendo-finder-final/internal/reservation"
	"github.com/Kuritho/vendo-finder-final/internal/vendo"
)

type fakeVendos struct {
	getVendo  func(ctx context.Context, id string) (clients.VendoInfo, error)
	getOrders func(ctx context.Context, id string) ([]clients.OrderHistoryEntry, error)
}

func (f fakeVendos) GetVendo(ctx context.Context, id string) (clients.VendoInfo, error) {
	return f.getVendo(ctx, id)
}

func (f fakeVendos) GetOrders(ctx context.Context, id string) ([]clients.OrderHistoryEntry, error) {
	return f.getOrders(ctx, id)
}

type fakeProducts struct {
	getVariant func(ctx context.Context, id int) (clients.Variant, error)
}

func (f fakeProducts) GetVariant(ctx context.Context, id int) (clients.Variant, error) {
	return f.getVariant(ctx, id)
}

func intPtr(n int) *int { return &n }

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func namedVendo(name string) fakeVendos {
	return fakeVendos{getVendo: func(context.Context, string) (clients.VendoInfo, error) {
		return clients.VendoInfo{Name: name}, nil
	}}
}

func TestLoadMergesDetailsAndKeepsFailedSlotsUnknown(t *testing.T) {
	products := fakeProducts{getVariant: func(_ context.Context, id int) (clients.Variant, error) {
		switch id {
		case 58:
			return clients.Variant{Price: price("12.50"), Stock: intPtr(3), Description: "Small", Name: "Pampers S"}, nil
		case 59:
			return clients.Variant{Stock: intPtr(0)}, nil
		default:
			return clients.Variant{}, errors.New("boom")
		}
	}}

	cat := NewLoader(namedVendo("Osorio Diaper Vendo"), products, nil, 2).Load(context.Background(), "4")

	assert.Equal(t, "Osorio Diaper Vendo", cat.MachineName)
	require.Len(t, cat.Products, 5)

	p58 := cat.Products[0]
	assert.Equal(t, "Pampers S", p58.Name)
	assert.Equal(t, "12.50", p58.Price.Decimal.StringFixed(2))
	assert.Equal(t, 3, *p58.Stock)
	assert.Equal(t, "Small", p58.Description)
	assert.True(t, p58.Loaded())

	p59 := cat.Products[1]
	assert.False(t, p59.Price.Valid)
	assert.Equal(t, 0, *p59.Stock)
	assert.Equal(t, "Pampers Medium", p59.Name)
	assert.Equal(t, reservation.NoDescription, p59.Description)

	for _, p := range cat.Products[2:] {
		assert.False(t, p.Price.Valid, "product %d", p.ID)
		assert.Nil(t, p.Stock, "product %d", p.ID)
		assert.False(t, p.Available())
	}
}

func TestLoadUnknownMachineIsEmpty(t *testing.T) {
	products := fakeProducts{getVariant: func(context.Context, int) (clients.Variant, error) {
		t.Fatal("no detail fetch expected")
		return clients.Variant{}, nil
	}}

	cat := NewLoader(namedVendo("x"), products, nil, 2).Load(context.Background(), "999")
	assert.NotNil(t, cat.Products)
	assert.Empty(t, cat.Products)
}

func TestLoadFetchesConcurrentlyWithinLimit(t *testing.T) {
	var inFlight, peak int32
	release := make(chan struct{})
	var once sync.Once

	products := fakeProducts{getVariant: func(context.Context, int) (clients.Variant, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
				break
			}
		}
		if n >= 3 {
			once.Do(func() { close(release) })
		}
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		atomic.AddInt32(&inFlight, -1)
		return clients.Variant{Stock: intPtr(1)}, nil
	}}
	vendos := fakeVendos{getVendo: func(context.Context, string) (clients.VendoInfo, error) {
		return clients.VendoInfo{Name: "n"}, nil
	}}

	cat := NewLoader(vendos, products, nil, 4).Load(context.Background(), "5")
	require.Len(t, cat.Products, 5)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))
}

func TestMachineNamePlaceholderOnFailure(t *testing.T) {
	tests := map[string]fakeVendos{
		"error": {getVendo: func(context.Context, string) (clients.VendoInfo, error) {
			return clients.VendoInfo{}, clients.ErrUpstream
		}},
		"blank name": {getVendo: func(context.Context, string) (clients.VendoInfo, error) {
			return clients.VendoInfo{}, nil
		}},
	}

	for name, vendos := range tests {
		t.Run(name, func(t *testing.T) {
			l := NewLoader(vendos, fakeProducts{}, nil, 1)
			assert.Equal(t, "Vendo 4", l.MachineName(context.Background(), "4"))
		})
	}
}

func TestDetails(t *testing.T) {
	var asked []int
	var mu sync.Mutex
	products := fakeProducts{getVariant: func(_ context.Context, id int) (clients.Variant, error) {
		mu.Lock()
		asked = append(asked, id)
		mu.Unlock()
		if id == 61 {
			return clients.Variant{}, errors.New("down")
		}
		return clients.Variant{Description: "desc", Price: price("1.00"), Stock: intPtr(2)}, nil
	}}
	l := NewLoader(fakeVendos{}, products, nil, 4)
	set := reservation.Set{{ProductID: 58, Quantity: 1}, {ProductID: 61, Quantity: 2}}

	details, err := l.Details(context.Background(), "4", set)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{58, 61}, asked)
	require.Contains(t, details, 58)
	assert.Equal(t, "desc", details[58].Description)
	assert.NotContains(t, details, 61)

	_, err = l.Details(context.Background(), "77", set)
	require.ErrorIs(t, err, ErrUnknownMachine)
}

func TestReduceReservedNeverBelowZero(t *testing.T) {
	s := State{MachineID: "4", Products: []vendo.Product{
		{ID: 58, Stock: intPtr(1)},
		{ID: 59, Stock: nil},
	}}

	next := Reduce(s, Reserved{ProductID: 58})
	assert.Equal(t, 0, *next.Products[0].Stock)
	assert.Equal(t, 1, *s.Products[0].Stock, "previous state must not change")

	next = Reduce(next, Reserved{ProductID: 58})
	assert.Equal(t, 0, *next.Products[0].Stock)

	next = Reduce(next, Reserved{ProductID: 59})
	assert.Nil(t, next.Products[1].Stock)
}

func TestReserveNoticesAndDecrements(t *testing.T) {
	ctx := context.Background()
	engine := reservation.NewEngine(reservation.NewMemoryStores().ForDevice("d"))
	s := Reduce(State{}, Loaded{Catalog: Catalog{MachineID: "4", Products: []vendo.Product{
		{ID: 58, Alt: "Pampers Small", Name: "Pampers Small", Price: price("10.00"), Stock: intPtr(1)},
	}}})

	s, err := Reserve(ctx, s, engine, 58)
	require.NoError(t, err)
	assert.Equal(t, "Reserved: Pampers Small", s.Notice)
	assert.Equal(t, 0, *s.Products[0].Stock)

	s, err = Reserve(ctx, s, engine, 58)
	require.ErrorIs(t, err, reservation.ErrOutOfStock)
	assert.Equal(t, "Out of stock: Pampers Small", s.Notice)

	set, err := engine.Load(ctx, "4")
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, 1, set[0].Quantity)

	_, err = Reserve(ctx, s, engine, 12345)
	require.ErrorIs(t, err, ErrUnknownProduct)
}

func TestToggleOrders(t *testing.T) {
	calls := 0
	vendos := fakeVendos{getOrders: func(context.Context, string) ([]clients.OrderHistoryEntry, error) {
		calls++
		if calls == 2 {
			return nil, clients.ErrUpstream
		}
		return []clients.OrderHistoryEntry{{Product: "Wipes", Timestamp: "2024-01-01T10:00:00", Status: "Completed"}}, nil
	}}
	l := NewLoader(vendos, fakeProducts{}, nil, 1)
	s := State{MachineID: "4"}

	s = l.ToggleOrders(context.Background(), s)
	assert.True(t, s.ShowOrders)
	require.Len(t, s.Orders, 1)

	s = l.ToggleOrders(context.Background(), s)
	assert.False(t, s.ShowOrders)

	s = l.ToggleOrders(context.Background(), s)
	assert.True(t, s.ShowOrders)
	assert.Empty(t, s.Orders)
	assert.NotEmpty(t, s.OrdersError)
}
