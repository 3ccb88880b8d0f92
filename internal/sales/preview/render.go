package preview

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"strings"
	"sync"

	"github.com/jung-kurt/gofpdf"

	"github.com/odyssey-erp/odyssey-crm/internal/sales/signature/capture"
	"github.com/odyssey-erp/odyssey-crm/web"
)

const signaturePrefix = "data:image/png;base64,"

var (
	pageOnce sync.Once
	pageTmpl *template.Template
	pageErr  error
)

func page() (*template.Template, error) {
	pageOnce.Do(func() {
		pageTmpl, pageErr = template.New("preview.html").Funcs(template.FuncMap{
			"signatureSrc": signatureSrc,
		}).ParseFS(web.Templates, "templates/quotes/preview.html")
	})
	return pageTmpl, pageErr
}

// signatureSrc only lets PNG data URLs through to <img src>.
func signatureSrc(s string) template.URL {
	if !strings.HasPrefix(s, signaturePrefix) {
		return ""
	}
	return template.URL(s)
}

// WriteHTML renders the preview page.
func WriteHTML(w io.Writer, v View) error {
	tmpl, err := page()
	if err != nil {
		return fmt.Errorf("parse preview template: %w", err)
	}
	return tmpl.Execute(w, v)
}

// Renderer produces a PDF for a quote view.
type Renderer interface {
	Render(ctx context.Context, v View) ([]byte, error)
}

// HTMLConverter is satisfied by report.Client.
type HTMLConverter interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// GotenbergRenderer prints the HTML preview through Gotenberg.
type GotenbergRenderer struct {
	converter HTMLConverter
}

func NewGotenbergRenderer(converter HTMLConverter) *GotenbergRenderer {
	return &GotenbergRenderer{converter: converter}
}

func (r *GotenbergRenderer) Render(ctx context.Context, v View) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteHTML(&buf, v); err != nil {
		return nil, err
	}
	return r.converter.RenderHTML(ctx, buf.String())
}

// FPDFRenderer writes a simple A4 layout locally with the core fonts.
type FPDFRenderer struct{}

func NewFPDFRenderer() *FPDFRenderer { return &FPDFRenderer{} }

func (FPDFRenderer) Render(ctx context.Context, v View) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	title := "Quote"
	if v.QuoteNumber != "" {
		title += " " + v.QuoteNumber
	}
	pdf.SetTitle(title, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(v.Name))
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 10)
	meta := tr(title + " - " + v.Company)
	if v.ExpiryDate != "" {
		meta += tr(" - valid until " + v.ExpiryDate)
	}
	pdf.Cell(0, 6, meta)
	pdf.Ln(10)

	widths := []float64{8, 72, 16, 26, 18, 16, 34}
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range []string{"#", "Description", "Qty", "Unit price", "Disc.", "Tax", "Total"} {
		align := "R"
		if i < 2 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, h, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, row := range v.Rows {
		cells := []string{fmt.Sprint(row.Position), trim(row.Description, 48), row.Quantity, row.UnitPrice, row.Discount, row.Tax, row.Total}
		for i, c := range cells {
			align := "R"
			if i < 2 {
				align = "L"
			}
			pdf.CellFormat(widths[i], 6, tr(c), "", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(4)
	for _, line := range [][2]string{
		{"Subtotal", v.Subtotal},
		{v.DiscountLabel, "-" + v.Discount},
		{v.TaxLabel, v.Tax},
		{"Total", v.Total},
	} {
		if line[0] == "Total" {
			pdf.SetFont("Helvetica", "B", 10)
		}
		pdf.CellFormat(140, 6, tr(line[0]), "", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, tr(line[1]), "", 1, "R", false, 0, "")
	}

	if v.SignedBy != "" {
		pdf.Ln(12)
		if _, err := capture.Decode(v.SignatureImage); err == nil {
			if img, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(v.SignatureImage, signaturePrefix)); err == nil {
				opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
				pdf.RegisterImageOptionsReader("signature", opts, bytes.NewReader(img))
				if pdf.Ok() {
					pdf.ImageOptions("signature", pdf.GetX(), pdf.GetY(), 60, 0, true, opts, 0, "")
				}
			}
		}
		pdf.SetFont("Helvetica", "", 10)
		accepted := "Accepted by " + v.SignedBy
		if v.SignedTitle != "" {
			accepted += ", " + v.SignedTitle
		}
		pdf.Cell(0, 6, tr(accepted+" on "+v.SignedAt))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "..."
}
