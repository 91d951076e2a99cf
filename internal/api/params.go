package api

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"shoestore/internal/models"
	"shoestore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// productQuery is the query-string form of a catalog filter
type productQuery struct {
	Search           string `form:"search"`
	ManufacturerID   *int64 `form:"manufacturerId"`
	MaxPrice         string `form:"maxPrice"`
	OnlyWithDiscount bool   `form:"onlyWithDiscount"`
	OnlyInStock      bool   `form:"onlyInStock"`
	SortBy           string `form:"sortBy"`
}

// ParseProductFilter reads catalog filters from the query string
func ParseProductFilter(c *gin.Context) (models.ProductFilter, error) {
	var q productQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return models.ProductFilter{}, fmt.Errorf("%w: %s", service.ErrInvalidInput, err.Error())
	}

	f := models.ProductFilter{
		Search:         strings.TrimSpace(q.Search),
		OnlyDiscounted: q.OnlyWithDiscount,
		OnlyInStock:    q.OnlyInStock,
		SortKey:        models.ParseSortKey(q.SortBy),
	}
	if q.ManufacturerID != nil && *q.ManufacturerID > 0 {
		f.ManufacturerID = q.ManufacturerID
	}
	if s := strings.TrimSpace(q.MaxPrice); s != "" {
		price, err := decimal.NewFromString(s)
		if err != nil {
			return models.ProductFilter{}, fmt.Errorf("%w: maxPrice %q is not a number", service.ErrInvalidInput, s)
		}
		f.MaxPrice = &price
	}
	return f, nil
}

// ParseID reads a positive integer path parameter
func ParseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", service.ErrInvalidInput, name)
	}
	return id, nil
}

// ParseDate accepts a calendar date (YYYY-MM-DD, local time) or an RFC3339 timestamp
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD or RFC3339", service.ErrInvalidInput, s)
}
