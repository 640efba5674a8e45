package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
)

type OrderClient struct{ c *Client }

func NewOrderClient(c *Client) *OrderClient { return &OrderClient{c: c} }

type OrderLine struct {
	ProductVariantID int     `json:"productVariantId"`
	Quantity         int     `json:"quantity"`
	Price            float64 `json:"price"`
}

type OrderConfirmation struct {
	Code        string          `json:"code"`
	OrderDate   string          `json:"orderDate"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}

// CreateOrder submits lines once. It never retries.
func (oc *OrderClient) CreateOrder(ctx context.Context, lines []OrderLine) (OrderConfirmation, error) {
	payload, err := json.Marshal(lines)
	if err != nil {
		return OrderConfirmation{}, fmt.Errorf("marshal order: %w", err)
	}

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")

	resp, err := oc.c.Do(ctx, http.MethodPost, "/api/Order/CreateOrder", bytes.NewReader(payload), headers)
	if err != nil {
		return OrderConfirmation{}, fmt.Errorf("%s POST CreateOrder: %w", oc.c.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return OrderConfirmation{}, &StatusError{Service: oc.c.Name, StatusCode: resp.StatusCode}
	}

	var body apiResponse[OrderConfirmation]
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return OrderConfirmation{}, fmt.Errorf("%s: decode order response: %w", oc.c.Name, err)
	}
	if !body.Success {
		msg := body.Message
		if msg == "" {
			msg = "Failed to create order"
		}
		return OrderConfirmation{}, &RejectedError{Service: oc.c.Name, Message: msg}
	}
	return body.Data, nil
}
