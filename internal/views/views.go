// Package views holds the embedded HTML templates of the catalog front end.
package views

import (
	"embed"
	"net/http"

	"github.com/gofiber/template/html/v2"
	"github.com/shopspring/decimal"
)

//go:embed *.html
var files embed.FS

// NewEngine returns a template engine over the embedded templates.
func NewEngine() *html.Engine {
	engine := html.NewFileSystem(http.FS(files), ".html")
	engine.AddFunc("price", FormatPrice)
	return engine
}

// FormatPrice renders a nullable price with two decimals, or an empty string for NULL.
func FormatPrice(price decimal.NullDecimal) string {
	if !price.Valid {
		return ""
	}
	return price.Decimal.StringFixed(2)
}
