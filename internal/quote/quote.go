package quote

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fjod/botstore/internal/domain"
	"github.com/jung-kurt/gofpdf"
)

var ErrEmptyCart = errors.New("cannot quote an empty cart")

// Render writes a one-page A4 PDF quote listing lines and their subtotal.
func Render(w io.Writer, lines []domain.CartLine, issued time.Time) error {
	if len(lines) == 0 {
		return ErrEmptyCart
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(issued)
	pdf.SetTitle("Quote", false)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Quote", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, "Issued: "+issued.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Prices in USD, payable in USDT", "", 1, "L", false, 0, "")
	pdf.Ln(4)

	widths := []float64{90, 30, 20, 40}
	pdf.SetFont("Arial", "B", 11)
	for i, h := range []string{"Product", "Unit price", "Qty", "Line total"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 8, h, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 11)
	for _, l := range lines {
		pdf.CellFormat(widths[0], 8, tr(l.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 8, "$"+l.Price.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 8, strconv.Itoa(l.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 8, "$"+l.LineTotal().StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 10, fmt.Sprintf("Subtotal (%d items)", domain.ItemCount(lines)), "T", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 10, "$"+domain.Subtotal(lines).StringFixed(2), "T", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render quote: %w", err)
	}
	return nil
}
