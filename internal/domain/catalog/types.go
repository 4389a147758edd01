package catalog

// Product is the canonical, backend-agnostic shape of one catalog record.
// It is rebuilt from raw upstream records on every sync and never persisted.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"` // minor currency units (VND), never negative
	Category    string  `json:"category"`
	Quantity    int     `json:"quantity"`
	Status      string  `json:"status"`
	Image       string  `json:"image"`
	CreatedAt   string  `json:"created_at,omitempty"` // opaque upstream timestamps, not parsed
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

// RawRecord is one undecoded product record as the catalog service returns it.
// Field naming varies upstream (sellPrice vs sell_price vs price, image vs
// image_url, category as object or id), so normalization owns all access.
type RawRecord map[string]any
