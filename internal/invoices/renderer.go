package invoices

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/aguasol/aguasol-backend/pkg/config"
	"github.com/aguasol/aguasol-backend/pkg/document"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const (
	pageMargin = 15.0
	lineHeight = 6.0
)

// column widths in mm for product, quantity, price and subtotal.
var columns = [4]float64{95, 20, 32, 33}

// Renderer draws normalized documents as single-page A4 invoices.
type Renderer struct {
	cfg config.InvoiceConfig
}

func NewRenderer(cfg config.InvoiceConfig) *Renderer {
	if strings.TrimSpace(cfg.CurrencySymbol) == "" {
		cfg.CurrencySymbol = "S/"
	}
	return &Renderer{cfg: cfg}
}

// Render returns the PDF bytes for doc.
func (r *Renderer) Render(doc document.Document) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(fmt.Sprintf("Comprobante %s", doc.OrderNumber), true)
	pdf.SetCreator(r.cfg.BusinessName, true)
	pdf.AddPage()

	// core fonts are cp1252; accents and ñ need translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	r.header(pdf, tr, doc)
	r.customerBlock(pdf, tr, doc)
	r.lines(pdf, tr, doc)
	r.totals(pdf, tr, doc)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render invoice: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write invoice: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) header(pdf *fpdf.Fpdf, tr func(string) string, doc document.Document) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(r.cfg.BusinessName), "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	for _, line := range []string{
		labeled("RUC", r.cfg.BusinessTaxID),
		r.cfg.BusinessAddress,
		labeled("Tel.", r.cfg.BusinessPhone),
	} {
		if line != "" {
			pdf.CellFormat(0, 4.5, tr(line), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	title := "Comprobante de pedido"
	if doc.OrderNumber != "" {
		title += " " + doc.OrderNumber
	}
	pdf.CellFormat(0, 8, tr(title), "B", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func (r *Renderer) customerBlock(pdf *fpdf.Fpdf, tr func(string) string, doc document.Document) {
	pdf.SetFont("Helvetica", "", 10)
	rows := [][2]string{
		{"Cliente", doc.CustomerName},
		{"Teléfono", doc.Phone},
		{"Dirección", doc.Address},
		{"Fecha", doc.CreatedAt},
		{"Forma de pago", doc.PaymentLabel},
	}
	for _, row := range rows {
		if strings.TrimSpace(row[1]) == "" {
			continue
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(32, lineHeight, tr(row[0]+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, lineHeight, tr(row[1]), "", "L", false)
	}
	pdf.Ln(4)
}

func (r *Renderer) lines(pdf *fpdf.Fpdf, tr func(string) string, doc document.Document) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 240, 250)
	headers := [4]string{"Producto", "Cant.", "P. unit.", "Subtotal"}
	aligns := [4]string{"L", "C", "R", "R"}
	for i, h := range headers {
		pdf.CellFormat(columns[i], 7, tr(h), "1", 0, aligns[i], true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, line := range doc.Lines {
		name := line.ProductName
		if strings.TrimSpace(name) == "" {
			name = document.FallbackProductName
		}
		cells := [4]string{
			name,
			strconv.Itoa(line.Quantity),
			r.money(line.Price),
			r.money(line.Subtotal),
		}
		for i, c := range cells {
			pdf.CellFormat(columns[i], 7, tr(c), "1", 0, aligns[i], false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(2)
}

func (r *Renderer) totals(pdf *fpdf.Fpdf, tr func(string) string, doc document.Document) {
	labelWidth := columns[0] + columns[1] + columns[2]
	rows := []struct {
		label string
		value decimal.Decimal
		bold  bool
	}{
		{"Subtotal", doc.Subtotal, false},
		{"Delivery", doc.DeliveryFee, false},
		{"Total", doc.Total, true},
	}
	for _, row := range rows {
		style := ""
		if row.bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(labelWidth, 7, tr(row.label), "", 0, "R", false, 0, "")
		pdf.CellFormat(columns[3], 7, tr(r.money(row.value)), "", 1, "R", false, 0, "")
	}
}

func (r *Renderer) money(v decimal.Decimal) string {
	return r.cfg.CurrencySymbol + " " + v.StringFixed(2)
}

func labeled(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return label + " " + value
}
