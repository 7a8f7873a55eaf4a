package service

import (
	"context"
	"math"
	"strings"

	"storefront-api/internal/models"

	"github.com/shopspring/decimal"
)

// PriceLookup returns a product's current average unit price
type PriceLookup func(ctx context.Context, productID string) (decimal.Decimal, error)

// orderItem is a validated request item
type orderItem struct {
	ProductID string
	SellerID  string
	Units     int
	UnitPrice decimal.Decimal
}

// resolveItem applies the per-item rules of an order. ok is false when the
// item must be skipped: empty product id, a quantity that is not a positive
// integer, or a price that is non-numeric, negative or not finite. Absent
// quantity means one unit and absent price means the product's current
// price.
func resolveItem(ctx context.Context, in models.OrderItemInput, defaultSeller string, lookup PriceLookup) (orderItem, bool, error) {
	productID := firstNonEmpty(string(in.ProductID), string(in.ID))
	if productID == "" {
		return orderItem{}, false, nil
	}

	units := 1
	if in.Quantity.Set {
		q := in.Quantity.Value
		if !in.Quantity.Finite() || q != math.Trunc(q) || q < 1 || q > math.MaxInt32 {
			return orderItem{}, false, nil
		}
		units = int(q)
	}

	raw := in.Price
	if !raw.Set {
		raw = in.UnitPrice
	}

	var price decimal.Decimal
	if raw.Set {
		if !raw.Finite() || raw.Value < 0 {
			return orderItem{}, false, nil
		}
		price = decimal.NewFromFloat(raw.Value)
	} else {
		var err error
		if price, err = lookup(ctx, productID); err != nil {
			return orderItem{}, false, err
		}
	}

	seller := firstNonEmpty(string(in.SellerID), defaultSeller)

	return orderItem{
		ProductID: productID,
		SellerID:  seller,
		Units:     units,
		UnitPrice: price,
	}, true, nil
}

// eventItems folds items into one entry per product for ORDER_PLACED
func eventItems(items []orderItem) []models.OrderItemData {
	index := map[string]int{}
	out := []models.OrderItemData{}
	for _, it := range items {
		if i, ok := index[it.ProductID]; ok {
			out[i].Units += it.Units
			continue
		}
		index[it.ProductID] = len(out)
		out = append(out, models.OrderItemData{
			ProductID: it.ProductID,
			Units:     it.Units,
			UnitPrice: it.UnitPrice,
		})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
