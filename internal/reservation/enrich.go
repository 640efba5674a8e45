package reservation

import (
	"github.com/shopspring/decimal"

	"github.com/Kuritho/vendo-finder-final/internal/vendo"
)

const NoDescription = "No description available"

// EnrichedLine is a reservation line joined with product detail for display.
type EnrichedLine struct {
	ProductID   int    `json:"productId"`
	ProductName string `json:"productName"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
	TotalPrice  string `json:"totalPrice"`
}

func (el EnrichedLine) line() Line {
	return Line{ProductID: el.ProductID, ProductName: el.ProductName, Price: el.Price, Quantity: el.Quantity, ImageURL: el.ImageURL}
}

// Enrich joins each line with details by product id. Lines without a detail
// keep the static catalog image and the default description. An unparseable
// price totals as 0.00.
func Enrich(set Set, details map[int]vendo.Product) []EnrichedLine {
	out := make([]EnrichedLine, 0, len(set))
	for _, l := range set {
		el := EnrichedLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Price:       l.Price,
			Quantity:    l.Quantity,
			Description: NoDescription,
			ImageURL:    vendo.ImageFor(l.ProductID),
		}
		if d, ok := details[l.ProductID]; ok {
			if d.Description != "" {
				el.Description = d.Description
			}
			if d.ImageURL != "" {
				el.ImageURL = d.ImageURL
			}
		}
		el.TotalPrice = LineTotal(l).StringFixed(2)
		out = append(out, el)
	}
	return out
}

// LineTotal is price times quantity rounded to cents.
func LineTotal(l Line) decimal.Decimal {
	price, err := l.UnitPrice()
	if err != nil {
		return decimal.Zero
	}
	return price.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
}

// Total sums the rounded line totals.
func Total(lines []EnrichedLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineTotal(l.line()))
	}
	return sum
}
