package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

type VendoClient struct{ c *Client }

func NewVendoClient(c *Client) *VendoClient { return &VendoClient{c: c} }

type VendoInfo struct {
	Name string `json:"name"`
}

// OrderHistoryEntry is one row of a machine's order history.
type OrderHistoryEntry struct {
	Product   string `json:"product"`
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

func (vc *VendoClient) GetVendo(ctx context.Context, vendoID string) (VendoInfo, error) {
	var body apiResponse[VendoInfo]
	if err := vc.c.getJSON(ctx, "/api/Vendo/GetVendo/"+url.PathEscape(vendoID), &body); err != nil {
		return VendoInfo{}, err
	}
	if !body.Success {
		msg := body.Message
		if msg == "" {
			msg = "vendo not found"
		}
		return VendoInfo{}, &RejectedError{Service: vc.c.Name, Message: msg}
	}
	return body.Data, nil
}

func (vc *VendoClient) GetOrders(ctx context.Context, vendoID string) ([]OrderHistoryEntry, error) {
	var raw json.RawMessage
	if err := vc.c.getJSON(ctx, "/api/Vendo/GetOrders/"+url.PathEscape(vendoID), &raw); err != nil {
		return nil, err
	}

	var orders []OrderHistoryEntry
	if err := json.Unmarshal(unwrapData(raw), &orders); err != nil {
		return nil, fmt.Errorf("%s: decode orders: %w", vc.c.Name, err)
	}
	if orders == nil {
		orders = []OrderHistoryEntry{}
	}
	return orders, nil
}
