package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SortKey selects the single ordering applied to a catalog query
type SortKey string

const (
	SortNameAsc     SortKey = "name_asc"
	SortNameDesc    SortKey = "name_desc"
	SortSupplierAsc SortKey = "supplier_asc"
	SortPriceAsc    SortKey = "price_asc"
	SortPriceDesc   SortKey = "price_desc"
)

// ParseSortKey returns the matching key, or SortNameAsc for anything unknown
func ParseSortKey(s string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortNameAsc, SortNameDesc, SortSupplierAsc, SortPriceAsc, SortPriceDesc:
		return k
	default:
		return SortNameAsc
	}
}

// ProductFilter narrows a catalog query. Zero values mean "no filter".
type ProductFilter struct {
	Search         string           `json:"search,omitempty"`
	ManufacturerID *int64           `json:"manufacturerId,omitempty"`
	MaxPrice       *decimal.Decimal `json:"maxPrice,omitempty"`
	OnlyDiscounted bool             `json:"onlyDiscounted,omitempty"`
	OnlyInStock    bool             `json:"onlyInStock,omitempty"`
	SortKey        SortKey          `json:"sortKey,omitempty"`
}
