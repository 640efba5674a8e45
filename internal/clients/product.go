package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

type ProductClient struct{ c *Client }

func NewProductClient(c *Client) *ProductClient { return &ProductClient{c: c} }

// Variant is the live detail of one product variant. Any field may be absent.
type Variant struct {
	Price       decimal.NullDecimal `json:"price"`
	Stock       *int                `json:"stock"`
	Description string              `json:"description"`
	Name        string              `json:"name"`
}

func (pc *ProductClient) GetVariant(ctx context.Context, id int) (Variant, error) {
	var raw json.RawMessage
	if err := pc.c.getJSON(ctx, "/api/ProductVariant/"+strconv.Itoa(id), &raw); err != nil {
		return Variant{}, err
	}

	var v Variant
	if err := json.Unmarshal(unwrapData(raw), &v); err != nil {
		return Variant{}, fmt.Errorf("%s: decode variant %d: %w", pc.c.Name, id, err)
	}
	return v, nil
}
