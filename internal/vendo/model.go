package vendo

import (
	"github.com/shopspring/decimal"

	"github.com/Kuritho/vendo-finder-final/internal/geo"
)

// Machine is a physical vending location.
type Machine struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (m Machine) PlaceName() string { return m.Name }

func (m Machine) Position() geo.Coordinate {
	return geo.Coordinate{Latitude: m.Latitude, Longitude: m.Longitude}
}

// Product is one slot of a machine's catalog. Price and Stock stay unknown
// (invalid / nil) until the remote detail fetch for the slot succeeds.
type Product struct {
	ID          int                 `json:"id"`
	APIID       int                 `json:"-"`
	Alt         string              `json:"alt"`
	Name        string              `json:"name"`
	Price       decimal.NullDecimal `json:"price"`
	Stock       *int                `json:"stock"`
	Description string              `json:"description,omitempty"`
	ImageURL    string              `json:"imageUrl"`
}

// DetailID is the id used against the ProductVariant endpoint.
func (p Product) DetailID() int {
	if p.APIID != 0 {
		return p.APIID
	}
	return p.ID
}

// DisplayName prefers the fetched name over the slot label.
func (p Product) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Alt
}

// Available reports whether at least one unit is known to be in stock.
func (p Product) Available() bool {
	return p.Stock != nil && *p.Stock > 0
}

// Loaded reports whether live price and stock have been merged in.
func (p Product) Loaded() bool {
	return p.Price.Valid && p.Stock != nil
}
