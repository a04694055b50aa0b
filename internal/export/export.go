// Package export writes catalog results in the formats offered by the API and the CLI.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"catalog/internal/models"

	"github.com/gocarina/gocsv"
)

// Supported output formats.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// productRow is the flat, NULL-free form of a product used for CSV and tables.
type productRow struct {
	ProductID       string `csv:"ProductID"`
	ProductName     string `csv:"ProductName"`
	Category        string `csv:"Category"`
	QuantityInStock string `csv:"QuantityInStock"`
	Price           string `csv:"Price"`
}

func toRows(products []models.Product) []*productRow {
	rows := make([]*productRow, 0, len(products))
	for _, p := range products {
		row := &productRow{ProductID: p.ProductID}
		if p.ProductName != nil {
			row.ProductName = *p.ProductName
		}
		if p.Category != nil {
			row.Category = *p.Category
		}
		if p.QuantityInStock != nil {
			row.QuantityInStock = strconv.Itoa(*p.QuantityInStock)
		}
		if p.Price.Valid {
			row.Price = p.Price.Decimal.StringFixed(2)
		}
		rows = append(rows, row)
	}
	return rows
}

// Write renders products to w in the given format.
func Write(w io.Writer, format string, products []models.Product) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, products)
	case FormatJSON:
		return WriteJSON(w, products)
	case FormatTable, "":
		return WriteTable(w, products)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// WriteCSV writes products as CSV with a header row.
func WriteCSV(w io.Writer, products []models.Product) error {
	if err := gocsv.Marshal(toRows(products), w); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// WriteJSON writes products as an indented JSON array.
func WriteJSON(w io.Writer, products []models.Product) error {
	if products == nil {
		products = []models.Product{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(products); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

// WriteTable writes products as aligned text columns.
func WriteTable(w io.Writer, products []models.Product) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT ID\tPRODUCT NAME\tCATEGORY\tQUANTITY IN STOCK\tPRICE")
	for _, row := range toRows(products) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", row.ProductID, row.ProductName, row.Category, row.QuantityInStock, row.Price)
	}
	return tw.Flush()
}
