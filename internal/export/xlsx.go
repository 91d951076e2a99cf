// Package export renders catalog data as spreadsheets.
package export

import (
	"fmt"
	"io"

	"shoestore/internal/models"

	"github.com/xuri/excelize/v2"
)

const catalogSheet = "Catalog"

var catalogHeader = []interface{}{
	"Article", "Name", "Category", "Manufacturer", "Supplier", "Unit",
	"Price", "Discount %", "Effective price", "Stock", "Description",
}

// WriteCatalog writes the products as an XLSX workbook with one row per product
func WriteCatalog(w io.Writer, products []models.ProductView) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", catalogSheet); err != nil {
		return err
	}

	if err := f.SetSheetRow(catalogSheet, "A1", &catalogHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(catalogSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, p := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		price, _ := p.Price.Float64()
		discount, _ := p.Discount.Float64()
		effective, _ := p.EffectivePrice.Float64()

		row := []interface{}{
			p.Article, p.Name, p.CategoryName, p.ManufacturerName, p.SupplierName, deref(p.Unit),
			price, discount, effective, p.Stock, deref(p.Description),
		}
		if err := f.SetSheetRow(catalogSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(catalogSheet, "A", "B", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(catalogSheet, "K", "K", 60); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
