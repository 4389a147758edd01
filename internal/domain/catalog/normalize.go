package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	applog "github.com/cuongday/CosmoChatbot/internal/platform/log"
)

// ErrNormalize marks a raw record that cannot be turned into a Product.
// Callers skip the record and keep going; the batch never fails as a whole.
var ErrNormalize = errors.New("catalog: normalize record")

// Normalize converts one raw upstream record into a canonical Product.
// Optional fields default (price 0, quantity 0, empty status/description);
// a missing identifier is fatal for the record since it could never be
// overwritten or looked up later.
func Normalize(raw RawRecord) (Product, error) {
	id := stringField(raw, "id", "product_id", "productId")
	if id == "" {
		return Product{}, fmt.Errorf("%w: missing identifier", ErrNormalize)
	}

	price := floatField(raw, "sellPrice", "sell_price", "price")
	if price < 0 {
		price = 0
	}

	return Product{
		ID:          id,
		Name:        stringField(raw, "name"),
		Description: stringField(raw, "description"),
		Price:       price,
		Category:    categoryField(raw),
		Quantity:    intField(raw, "quantity"),
		Status:      statusField(raw),
		Image:       stringField(raw, "image", "image_url", "imageUrl"),
		CreatedAt:   stringField(raw, "createdAt", "created_at"),
		UpdatedAt:   stringField(raw, "updatedAt", "updated_at"),
	}, nil
}

// NormalizeAll normalizes a batch, skipping malformed records. It returns the
// canonical products and the number of records skipped.
func NormalizeAll(raws []RawRecord) ([]Product, int) {
	products := make([]Product, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		p, err := Normalize(raw)
		if err != nil {
			skipped++
			applog.Warn("[Catalog] Record skipped", "error", err)
			continue
		}
		products = append(products, p)
	}
	return products, skipped
}

func stringField(raw RawRecord, keys ...string) string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch tv := v.(type) {
		case string:
			if s := strings.TrimSpace(tv); s != "" {
				return s
			}
		case float64:
			// JSON numbers decode as float64; IDs are frequently numeric upstream.
			return strconv.FormatFloat(tv, 'f', -1, 64)
		case int:
			return strconv.Itoa(tv)
		case bool:
			return strconv.FormatBool(tv)
		}
	}
	return ""
}

func floatField(raw RawRecord, keys ...string) float64 {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch tv := v.(type) {
		case float64:
			return tv
		case int:
			return float64(tv)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(tv), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func intField(raw RawRecord, keys ...string) int {
	return int(floatField(raw, keys...))
}

// categoryField accepts either a flat category_id or the nested
// {"category": {"id": ..., "name": ...}} object the catalog service returns.
func categoryField(raw RawRecord) string {
	if nested, ok := raw["category"].(map[string]any); ok {
		if name := stringField(nested, "name"); name != "" {
			return name
		}
		return stringField(nested, "id")
	}
	return stringField(raw, "category_id", "categoryId", "category")
}

// statusField tolerates the boolean active flag some upstream versions use.
func statusField(raw RawRecord) string {
	if b, ok := raw["status"].(bool); ok {
		if b {
			return "active"
		}
		return "inactive"
	}
	return stringField(raw, "status")
}
