// internal/domain/models.go
package domain

import (
	"strings"
	"time"
)

// ProductRecord is one row of the product master.
type ProductRecord struct {
	SKU           string  `json:"sku" validate:"required"`
	ProductName   string  `json:"product_name"`
	Brand         string  `json:"brand"`
	Tier          string  `json:"tier"`
	Status        string  `json:"status"`
	FloorPrice    float64 `json:"floor_price" validate:"gte=0"`
	NetOrderPrice float64 `json:"net_order_price" validate:"gte=0"`
}

// IsActive reports whether the product status is "active", case-insensitively.
func (p ProductRecord) IsActive() bool {
	return strings.EqualFold(strings.TrimSpace(p.Status), "active")
}

// BrandOrUnknown returns the brand label used for grouping.
func (p *ProductRecord) BrandOrUnknown() string {
	if p == nil || strings.TrimSpace(p.Brand) == "" {
		return UnknownGroup
	}
	return p.Brand
}

// TierOrUnknown returns the tier label used for grouping.
func (p *ProductRecord) TierOrUnknown() string {
	if p == nil || strings.TrimSpace(p.Tier) == "" {
		return UnknownGroup
	}
	return p.Tier
}

// UnknownGroup labels rows whose brand or tier is blank or unmatched.
const UnknownGroup = "Unknown"

// ProductCatalog is the validated product master for one refresh cycle.
type ProductCatalog struct {
	Products []ProductRecord `json:"products"`
	// HasPrices is true when both price columns exist in the source table.
	HasPrices bool `json:"has_prices"`

	index map[string]int
}

// NewProductCatalog indexes products by SKU. The first occurrence of a SKU wins;
// later duplicates are returned so the caller can report them.
func NewProductCatalog(products []ProductRecord, hasPrices bool) (*ProductCatalog, []string) {
	c := &ProductCatalog{
		HasPrices: hasPrices,
		index:     make(map[string]int, len(products)),
	}

	var duplicates []string
	for _, p := range products {
		if _, seen := c.index[p.SKU]; seen {
			duplicates = append(duplicates, p.SKU)
			continue
		}
		c.index[p.SKU] = len(c.Products)
		c.Products = append(c.Products, p)
	}

	return c, duplicates
}

// Lookup returns the catalog record for sku. The pointer is shared by every
// enriched row referencing the same SKU and must be treated as read-only.
func (c *ProductCatalog) Lookup(sku string) (*ProductRecord, bool) {
	if c == nil {
		return nil, false
	}
	i, ok := c.index[sku]
	if !ok {
		return nil, false
	}
	return &c.Products[i], true
}

// IsActive reports whether sku exists in the catalog with an active status.
func (c *ProductCatalog) IsActive(sku string) bool {
	p, ok := c.Lookup(sku)
	return ok && p.IsActive()
}

// ActiveSKUs returns the set of active SKUs.
func (c *ProductCatalog) ActiveSKUs() map[string]struct{} {
	out := make(map[string]struct{})
	if c == nil {
		return out
	}
	for _, p := range c.Products {
		if p.IsActive() {
			out[p.SKU] = struct{}{}
		}
	}
	return out
}

// Len returns the number of distinct SKUs.
func (c *ProductCatalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Products)
}

// TimeSeriesRow is the long-format shape shared by sales, Rofo, PO and channel
// forecast facts. Product is nil when the SKU has no product master match.
type TimeSeriesRow struct {
	SKU      string         `json:"sku"`
	Month    time.Time      `json:"month"`
	Quantity float64        `json:"quantity"`
	Product  *ProductRecord `json:"product,omitempty"`
}

// StockRecord is a batch-level stock on hand row.
type StockRecord struct {
	SKU      string         `json:"sku"`
	Quantity float64        `json:"quantity"`
	Batch    string         `json:"batch,omitempty"`
	Category string         `json:"category,omitempty"`
	Expiry   string         `json:"expiry,omitempty"`
	Product  *ProductRecord `json:"product,omitempty"`
}

// FulfillmentCostRow is one month of fulfillment cost split by component
// (e.g. warehousing, shipping, packaging).
type FulfillmentCostRow struct {
	Month      time.Time          `json:"month"`
	Components map[string]float64 `json:"components"`
}

// Total returns the sum of all cost components.
func (r FulfillmentCostRow) Total() float64 {
	var total float64
	for _, v := range r.Components {
		total += v
	}
	return total
}
