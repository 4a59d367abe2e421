package reporting

import (
	"io"
	"strconv"

	"github.com/360EntSecGroup-Skylar/excelize"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/talkincode/bikeshop/internal/domain"
)

const (
	ExportCSV  = "csv"
	ExportXLSX = "xlsx"
)

const exportSheet = "Sheet1"

// exportRow is the flat ledger line written by the exporters.
type exportRow struct {
	Invoice       string  `csv:"invoice"`
	SaleDate      string  `csv:"sale_date"`
	Status        string  `csv:"status"`
	BikeBrand     string  `csv:"bike_brand"`
	BikeModel     string  `csv:"bike_model"`
	BikeColor     string  `csv:"bike_color"`
	CustomerName  string  `csv:"customer_name"`
	CustomerPhone string  `csv:"customer_phone"`
	Quantity      int     `csv:"quantity"`
	UnitPrice     float64 `csv:"unit_price"`
	Discount      float64 `csv:"discount_percentage"`
	TotalAmount   float64 `csv:"total_amount"`
	PaymentMethod string  `csv:"payment_method"`
}

var exportHeader = []string{
	"invoice", "sale_date", "status", "bike_brand", "bike_model", "bike_color",
	"customer_name", "customer_phone", "quantity", "unit_price", "discount_percentage",
	"total_amount", "payment_method",
}

func toExportRows(sales []domain.SaleDetail) []*exportRow {
	rows := make([]*exportRow, 0, len(sales))
	for _, s := range sales {
		row := &exportRow{
			Invoice:       s.InvoiceNumber,
			SaleDate:      s.SaleDate.Format("2006-01-02 15:04:05"),
			Status:        s.Status,
			Quantity:      s.Quantity,
			UnitPrice:     s.UnitPrice,
			Discount:      s.DiscountPercentage,
			TotalAmount:   s.TotalAmount,
			PaymentMethod: s.PaymentMethod,
		}
		if s.Bike != nil {
			row.BikeBrand = s.Bike.Brand
			row.BikeModel = s.Bike.Model
			row.BikeColor = s.Bike.Color
		}
		if s.Customer != nil {
			row.CustomerName = s.Customer.Name
			row.CustomerPhone = s.Customer.Phone
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes sales as CSV with a header line.
func WriteCSV(w io.Writer, sales []domain.SaleDetail) error {
	return errors.Wrap(gocsv.Marshal(toExportRows(sales), w), "write csv")
}

// WriteXLSX writes sales as a single sheet workbook with a header row.
func WriteXLSX(w io.Writer, sales []domain.SaleDetail) error {
	f := excelize.NewFile()
	for col, name := range exportHeader {
		f.SetCellValue(exportSheet, cell(col, 1), name)
	}
	for i, r := range toExportRows(sales) {
		line := i + 2
		values := []interface{}{
			r.Invoice, r.SaleDate, r.Status, r.BikeBrand, r.BikeModel, r.BikeColor,
			r.CustomerName, r.CustomerPhone, r.Quantity, r.UnitPrice, r.Discount,
			r.TotalAmount, r.PaymentMethod,
		}
		for col, v := range values {
			f.SetCellValue(exportSheet, cell(col, line), v)
		}
	}
	return errors.Wrap(f.Write(w), "write xlsx")
}

// cell names a zero based column and one based row, e.g. cell(1, 2) is "B2".
func cell(col, row int) string {
	return excelize.ToAlphaString(col) + strconv.Itoa(row)
}
