package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventTypeOrderPlaced = "OrderPlaced"
	orderPlacedSchema    = "contracts/events/vendo/OrderPlaced.v1.payload.schema.json"
)

// OrderPlacedPayload describes an order accepted by the remote API.
type OrderPlacedPayload struct {
	OrderCode   string            `json:"orderCode"`
	MachineID   string            `json:"machineId"`
	DeviceID    string            `json:"deviceId"`
	OrderDate   string            `json:"orderDate"`
	TotalAmount decimal.Decimal   `json:"totalAmount"`
	Items       []OrderPlacedItem `json:"items"`
	Timestamp   time.Time         `json:"timestamp"`
}

type OrderPlacedItem struct {
	ProductID int    `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

type OrderPlacedEvent struct {
	EventEnvelope
	Payload OrderPlacedPayload `json:"payload"`
}
