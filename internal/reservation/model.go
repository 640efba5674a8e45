package reservation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrOutOfStock   = errors.New("out of stock")
	ErrLineNotFound = errors.New("reservation line not found")
	ErrCorruptSet   = errors.New("stored reservation set is corrupt")
)

const keyPrefix = "reservedItems_"

// StorageKey is the persisted key for a machine's reservation set.
func StorageKey(machineID string) string {
	return keyPrefix + machineID
}

// Line is one product held in a reservation set. Price is frozen as the
// decimal string seen at reservation time; empty means it was unknown.
type Line struct {
	ProductID   int    `json:"productId"`
	ProductName string `json:"productName"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
	ImageURL    string `json:"imageUrl"`
}

// UnmarshalJSON accepts price stored either as a JSON string or a number.
func (l *Line) UnmarshalJSON(b []byte) error {
	type alias Line
	var raw struct {
		alias
		Price json.RawMessage `json:"price"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*l = Line(raw.alias)

	p := bytes.TrimSpace(raw.Price)
	switch {
	case len(p) == 0 || bytes.Equal(p, []byte("null")):
		l.Price = ""
	case p[0] == '"':
		return json.Unmarshal(p, &l.Price)
	default:
		var n json.Number
		if err := json.Unmarshal(p, &n); err != nil {
			return fmt.Errorf("price: %w", err)
		}
		l.Price = n.String()
	}
	return nil
}

// UnitPrice parses the frozen price.
func (l Line) UnitPrice() (decimal.Decimal, error) {
	if l.Price == "" {
		return decimal.Zero, fmt.Errorf("product %d has no price", l.ProductID)
	}
	d, err := decimal.NewFromString(l.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("product %d price %q: %w", l.ProductID, l.Price, err)
	}
	return d, nil
}

// Set is the ordered reservation list of one machine, unique by product id.
type Set []Line

func (s Set) Index(productID int) int {
	for i, l := range s {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s Set) Clone() Set {
	out := make(Set, len(s))
	copy(out, s)
	return out
}

// Quantity is the number of units across all lines.
func (s Set) Quantity() int {
	n := 0
	for _, l := range s {
		n += l.Quantity
	}
	return n
}

func decodeSet(raw []byte) (Set, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return Set{}, nil
	}
	var s Set
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSet, err)
	}
	// Lines sharing a product id are folded into the first one.
	out := make(Set, 0, len(s))
	for _, l := range s {
		if l.Quantity < 1 {
			l.Quantity = 1
		}
		if i := out.Index(l.ProductID); i >= 0 {
			out[i].Quantity += l.Quantity
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func encodeSet(s Set) ([]byte, error) {
	if s == nil {
		s = Set{}
	}
	return json.Marshal(s)
}
