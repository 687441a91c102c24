package invoices

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"musa/models"
	"musa/pricing"
)

var ErrBadSignature = errors.New("invoice signature does not match")

// Signer produces and checks the code printed as a QR on each invoice:
// invoice_number|order_id|signature.
type Signer struct {
	Key []byte
}

func (s Signer) sign(data string) string {
	h := hmac.New(sha256.New, s.Key)
	h.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (s Signer) Code(invoiceNumber string, orderID int) string {
	data := fmt.Sprintf("%s|%d", invoiceNumber, orderID)
	return data + "|" + s.sign(data)
}

// Verify returns the invoice number and order id of a valid code. The
// number may itself contain '|', so the code is split from the right.
func (s Signer) Verify(code string) (string, int, error) {
	i := strings.LastIndex(code, "|")
	if i < 0 {
		return "", 0, ErrBadSignature
	}
	data, sig := code[:i], code[i+1:]
	if !hmac.Equal([]byte(s.sign(data)), []byte(sig)) {
		return "", 0, ErrBadSignature
	}
	j := strings.LastIndex(data, "|")
	if j < 0 {
		return "", 0, ErrBadSignature
	}
	orderID, err := strconv.Atoi(data[j+1:])
	if err != nil {
		return "", 0, ErrBadSignature
	}
	return data[:j], orderID, nil
}

// RenderPDF lays out an issued invoice on one A4 page with its QR code.
func RenderPDF(order models.Order, signer Signer) ([]byte, error) {
	inv := order.Invoice
	if inv == nil {
		return nil, errors.New("order has no invoice")
	}

	qrPNG, err := qrcode.Encode(signer.Code(inv.InvoiceNumber, order.ID), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+inv.InvoiceNumber, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, "Invoice")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 7, "Invoice number: "+inv.InvoiceNumber)
	pdf.Ln(7)
	pdf.Cell(0, 7, fmt.Sprintf("Order: #%d", order.ID))
	pdf.Ln(7)
	if order.UserName != "" {
		pdf.Cell(0, 7, "Customer: "+order.UserName)
		pdf.Ln(7)
	}
	if inv.CreatedAt != "" {
		pdf.Cell(0, 7, "Issued: "+dateOnly(inv.CreatedAt))
		pdf.Ln(7)
	}
	if order.DeliveryDate != "" {
		pdf.Cell(0, 7, "Delivery: "+dateOnly(order.DeliveryDate))
		pdf.Ln(7)
	}

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 160, 15, 35, 35, false, imageOpts, 0, "")
	pdf.Ln(6)

	widths := []float64{62, 18, 22, 28, 22, 38}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	for i, h := range []string{"Product", "Qty", "Weight", "Price", "Basis", "Subtotal"} {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	for _, it := range inv.Items {
		pdf.CellFormat(widths[0], 7, it.ProductName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, strconv.Itoa(it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 7, it.Weight.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 7, pricing.Format(it.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 7, string(it.CalcType), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[5], 7, pricing.Format(pricing.Subtotal(it)), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	_, total := pricing.Recalculate(inv.Items)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(widths[0]+widths[1]+widths[2]+widths[3]+widths[4], 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[5], 8, "INR "+pricing.Format(total), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func dateOnly(s string) string {
	if t, ok := models.ParseDate(s); ok {
		return t.Format("02 Jan 2006")
	}
	return s
}
