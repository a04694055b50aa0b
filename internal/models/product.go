package models

import (
	"github.com/shopspring/decimal"
)

// Column names of the Products table.
const (
	ColumnProductID       = "ProductID"
	ColumnProductName     = "ProductName"
	ColumnCategory        = "Category"
	ColumnQuantityInStock = "QuantityInStock"
	ColumnPrice           = "Price"
)

// Product represents a row of the Products table.
// Optional columns are pointers (or NullDecimal) so NULL stays distinguishable from zero.
type Product struct {
	ProductID       string              `json:"product_id" gorm:"column:ProductID;primaryKey;type:varchar(10)"`
	ProductName     *string             `json:"product_name" gorm:"column:ProductName;type:varchar(100)"`
	Category        *string             `json:"category" gorm:"column:Category;type:varchar(50)"`
	QuantityInStock *int                `json:"quantity_in_stock" gorm:"column:QuantityInStock"`
	Price           decimal.NullDecimal `json:"price" gorm:"column:Price;type:decimal(10,2)"`
}

// TableName returns the table name for Product.
func (Product) TableName() string {
	return "Products"
}
