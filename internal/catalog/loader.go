package catalog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Kuritho/vendo-finder-final/internal/clients"
	"github.com/Kuritho/vendo-finder-final/internal/reservation"
	"github.com/Kuritho/vendo-finder-final/internal/vendo"
)

var ErrUnknownMachine = errors.New("unknown machine")

// VendoAPI is the part of the remote API describing machines.
type VendoAPI interface {
	GetVendo(ctx context.Context, vendoID string) (clients.VendoInfo, error)
	GetOrders(ctx context.Context, vendoID string) ([]clients.OrderHistoryEntry, error)
}

// ProductAPI returns live product variant details.
type ProductAPI interface {
	GetVariant(ctx context.Context, id int) (clients.Variant, error)
}

// Loader fetches a machine's catalog. Slot details are fetched concurrently
// and joined once every fetch has settled; one failure never cancels the rest.
type Loader struct {
	vendos   VendoAPI
	products ProductAPI
	logger   *zap.Logger
	limit    int
}

func NewLoader(vendos VendoAPI, products ProductAPI, logger *zap.Logger, limit int) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = 8
	}
	return &Loader{vendos: vendos, products: products, logger: logger, limit: limit}
}

// Catalog is one machine's merged product list.
type Catalog struct {
	MachineID   string
	MachineName string
	Products    []vendo.Product
}

// Load returns the slot allow-list of machineID merged with live details.
// An unknown machine yields an empty product list.
func (l *Loader) Load(ctx context.Context, machineID string) Catalog {
	products := vendo.Slots(machineID)

	g := new(errgroup.Group)
	g.SetLimit(l.limit)

	var name string
	g.Go(func() error {
		name = l.MachineName(ctx, machineID)
		return nil
	})
	for i := range products {
		g.Go(func() error {
			products[i] = l.fetch(ctx, products[i])
			return nil
		})
	}
	_ = g.Wait()

	return Catalog{MachineID: machineID, MachineName: name, Products: products}
}

// MachineName returns the remote machine name, or a placeholder when the
// lookup fails.
func (l *Loader) MachineName(ctx context.Context, machineID string) string {
	info, err := l.vendos.GetVendo(ctx, machineID)
	if err != nil || info.Name == "" {
		l.logger.Warn("machine name unavailable",
			zap.String("machine_id", machineID),
			zap.Error(err))
		return PlaceholderName(machineID)
	}
	return info.Name
}

func PlaceholderName(machineID string) string {
	return "Vendo " + machineID
}

// Details fetches live details for the reserved product ids of machineID,
// keyed by product id. Products whose fetch failed are absent from the result.
func (l *Loader) Details(ctx context.Context, machineID string, set reservation.Set) (map[int]vendo.Product, error) {
	if !vendo.Known(machineID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMachine, machineID)
	}

	slots := make(map[int]vendo.Product)
	for _, p := range vendo.Slots(machineID) {
		slots[p.ID] = p
	}

	type result struct {
		product vendo.Product
		ok      bool
	}
	results := make([]result, len(set))

	g := new(errgroup.Group)
	g.SetLimit(l.limit)
	for i, line := range set {
		g.Go(func() error {
			base, ok := slots[line.ProductID]
			if !ok {
				base = vendo.Product{ID: line.ProductID, Alt: line.ProductName}
			}
			v, err := l.products.GetVariant(ctx, base.DetailID())
			if err != nil {
				l.logger.Warn("product detail unavailable",
					zap.String("machine_id", machineID),
					zap.Int("product_id", line.ProductID),
					zap.Error(err))
				return nil
			}
			results[i] = result{product: Merge(base, v), ok: true}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[int]vendo.Product, len(set))
	for _, r := range results {
		if r.ok {
			out[r.product.ID] = r.product
		}
	}
	return out, nil
}

// Orders returns the machine's order history.
func (l *Loader) Orders(ctx context.Context, machineID string) ([]clients.OrderHistoryEntry, error) {
	return l.vendos.GetOrders(ctx, machineID)
}

func (l *Loader) fetch(ctx context.Context, p vendo.Product) vendo.Product {
	v, err := l.products.GetVariant(ctx, p.DetailID())
	if err != nil {
		l.logger.Warn("product detail unavailable",
			zap.Int("product_id", p.ID),
			zap.Error(err))
		return p
	}
	return Merge(p, v)
}

// Merge overlays fetched variant fields onto a slot. Absent price and stock
// stay unknown.
func Merge(p vendo.Product, v clients.Variant) vendo.Product {
	if v.Price.Valid {
		p.Price = v.Price
	}
	if v.Stock != nil {
		stock := *v.Stock
		p.Stock = &stock
	}
	p.Description = v.Description
	if p.Description == "" {
		p.Description = reservation.NoDescription
	}
	p.Name = v.Name
	if p.Name == "" {
		p.Name = p.Alt
	}
	if p.ImageURL == "" {
		p.ImageURL = vendo.ImageFor(p.ID)
	}
	return p
}
