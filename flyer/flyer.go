// Package flyer renders a printable A4 flyer for a listing with a QR code
// that opens the listing page.
package flyer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"

	"unihive/models"
)

const qrSize = 256

// Render returns the PDF bytes of the flyer for l. link is encoded in the QR code.
func Render(l models.Listing, link string) ([]byte, error) {
	qrPNG, err := qrcode.Encode(link, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("qr code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(l.Title, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 11)
	pdf.SetTextColor(120, 120, 120)
	pdf.Cell(0, 8, strings.ToUpper(string(l.Hive)))
	pdf.Ln(10)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "B", 22)
	pdf.MultiCell(0, 10, tr(l.Title), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 12)
	for _, row := range details(l) {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(40, 8, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		pdf.CellFormat(0, 8, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if l.Description != "" {
		pdf.SetFont("Arial", "", 12)
		pdf.MultiCell(120, 6, tr(l.Description), "", "L", false)
	}

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 150, 40, 45, 45, false, imageOpts, 0, "")
	pdf.SetXY(150, 87)
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(45, 5, "Scan to open on UniHive", "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func details(l models.Listing) [][2]string {
	var rows [][2]string
	add := func(label, v string) {
		if strings.TrimSpace(v) != "" {
			rows = append(rows, [2]string{label, v})
		}
	}
	add("Price", l.Price.String())
	add("Location", l.Location)
	add("University", l.Affiliation)
	add("Company", l.Company)
	add("Type", string(l.Kind))
	add("Category", l.Category)
	add("Deadline", l.Deadline)
	add("Status", string(l.Status))
	if len(l.Tags) > 0 {
		add("Tags", strings.Join(l.Tags, ", "))
	}
	return rows
}
