package catalog

import (
	"github.com/Kuritho/vendo-finder-final/internal/clients"
	"github.com/Kuritho/vendo-finder-final/internal/vendo"
)

// State is the catalog screen of one machine. Values are never mutated in
// place; Reduce returns a new State.
type State struct {
	MachineID   string                      `json:"machineId"`
	MachineName string                      `json:"machineName"`
	Products    []vendo.Product             `json:"products"`
	ShowOrders  bool                        `json:"showOrders"`
	Orders      []clients.OrderHistoryEntry `json:"orders"`
	OrdersError string                      `json:"ordersError,omitempty"`
	Notice      string                      `json:"notice,omitempty"`
}

// Action is an event applied to a State by Reduce.
type Action interface {
	apply(State) State
}

// Loaded replaces the screen with a freshly loaded catalog.
type Loaded struct{ Catalog Catalog }

// Reserved records one successful reservation of ProductID.
type Reserved struct{ ProductID int }

// OrdersShown opens the order history panel.
type OrdersShown struct {
	Orders []clients.OrderHistoryEntry
	Err    string
}

type OrdersHidden struct{}

// Noticed sets the one-shot message shown to the user.
type Noticed struct{ Message string }

func Reduce(s State, a Action) State {
	return a.apply(s)
}

func (a Loaded) apply(State) State {
	products := make([]vendo.Product, len(a.Catalog.Products))
	copy(products, a.Catalog.Products)
	return State{
		MachineID:   a.Catalog.MachineID,
		MachineName: a.Catalog.MachineName,
		Products:    products,
		Orders:      []clients.OrderHistoryEntry{},
	}
}

// apply decrements the displayed stock by one. It never goes below zero and
// unknown stock stays unknown.
func (a Reserved) apply(s State) State {
	products := make([]vendo.Product, len(s.Products))
	copy(products, s.Products)
	for i, p := range products {
		if p.ID != a.ProductID || p.Stock == nil {
			continue
		}
		stock := *p.Stock - 1
		if stock < 0 {
			stock = 0
		}
		products[i].Stock = &stock
	}
	s.Products = products
	return s
}

func (a OrdersShown) apply(s State) State {
	orders := a.Orders
	if orders == nil {
		orders = []clients.OrderHistoryEntry{}
	}
	s.ShowOrders = true
	s.Orders = orders
	s.OrdersError = a.Err
	return s
}

func (OrdersHidden) apply(s State) State {
	s.ShowOrders = false
	s.OrdersError = ""
	return s
}

func (a Noticed) apply(s State) State {
	s.Notice = a.Message
	return s
}

// Product looks up a product on the screen by id.
func (s State) Product(id int) (vendo.Product, bool) {
	for _, p := range s.Products {
		if p.ID == id {
			return p, true
		}
	}
	return vendo.Product{}, false
}
