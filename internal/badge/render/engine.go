// Package render lays a badge out onto a fixed-size A5 print document.
// The engine is a pure function of (badge, template, options): it keeps no
// state and the layout constants here must match the on-screen preview's
// constants, since preview and print are independent views of the same
// badge data.
package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"regexp"
	"strings"

	"github.com/signintech/gopdf"

	"ms-badging/internal/badge/qr"
	"ms-badging/internal/models"
)

// Page and block geometry. The page is A5; the badge content block is a
// fixed 54x85mm credential card positioned inside it.
const (
	PageWidthMM  = 148.0
	PageHeightMM = 210.0

	// Pixel-equivalent page dimensions at 96dpi, used to convert
	// caller-supplied pixel positions to millimeters.
	PageWidthPx  = 559.0
	PageHeightPx = 794.0

	BlockWidthMM  = 54.0
	BlockHeightMM = 85.0

	qrSizeMM = 30.0
	qrGapMM  = 5.0
)

const fontFamily = "badge"

// Template is a named visual styling configuration applied at render
// time, independent of the badge's identity and QR content.
type Template struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FontPath string `json:"fontPath,omitempty"`
	ShowQR   bool   `json:"showQr"`
}

// DefaultTemplate is used when a badge's template id is unknown.
func DefaultTemplate() Template {
	return Template{ID: "standard", Name: "Standard", ShowQR: true}
}

// Position is a caller-supplied block position in page pixels. Values are
// clamped so the block always lands fully on the page.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Margins struct {
	Top  float64
	Side float64
}

// Options are the caller-overridable base values every font size, margin
// and line offset derives from.
type Options struct {
	FontSize float64
	Margins  Margins
	Position *Position
}

func defaultOptions() Options {
	return Options{
		FontSize: 11,
		Margins:  Margins{Top: 10, Side: 4},
	}
}

// categoryColors maps each badge category to its banner RGB triple.
var categoryColors = map[string][3]uint8{
	models.CategoryOrganizer:   {155, 89, 182},
	models.CategoryVIP:         {241, 196, 15},
	models.CategorySpeaker:     {52, 152, 219},
	models.CategoryExhibitor:   {46, 204, 113},
	models.CategoryMedia:       {231, 76, 60},
	models.CategoryHostedBuyer: {230, 126, 34},
	models.CategoryAgent:       {52, 73, 94},
	models.CategoryVisitor:     {149, 165, 166},
}

var defaultCategoryColor = [3]uint8{127, 140, 141}

// CategoryColor returns the banner color for a category, falling back to
// a neutral color for anything unrecognized.
func CategoryColor(category string) (r, g, b uint8) {
	c, ok := categoryColors[category]
	if !ok {
		c = defaultCategoryColor
	}
	return c[0], c[1], c[2]
}

// ClampBlockOrigin converts a pixel position to millimeters and clamps it
// so the block never exceeds the page bounds. Without the clamp an
// off-page position would silently clip content; instead the block is
// re-anchored fully inside the page.
func ClampBlockOrigin(xPx, yPx float64) (xMM, yMM float64) {
	xMM = xPx * PageWidthMM / PageWidthPx
	yMM = yPx * PageHeightMM / PageHeightPx

	if xMM < 0 {
		xMM = 0
	}
	if xMM > PageWidthMM-BlockWidthMM {
		xMM = PageWidthMM - BlockWidthMM
	}
	if yMM < 0 {
		yMM = 0
	}
	if yMM > PageHeightMM-BlockHeightMM {
		yMM = PageHeightMM - BlockHeightMM
	}
	return xMM, yMM
}

// SplitName applies the two-line wrap heuristic: first word on one line,
// the remaining words on a second; single-word names get one line.
func SplitName(name string) []string {
	words := strings.Fields(name)
	if len(words) <= 1 {
		return []string{strings.TrimSpace(name)}
	}
	return []string{words[0], strings.Join(words[1:], " ")}
}

var filenameSanitizer = regexp.MustCompile(`[^A-Za-z0-9]+`)

// Filename derives the download filename for a badge's print artifact.
func Filename(badge models.Badge) string {
	name := filenameSanitizer.ReplaceAllString(badge.Name, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "badge"
	}
	return name + "_badge.pdf"
}

// Engine renders badges to PDF. The PDF and QR encoding work is only
// touched when a caller actually prints.
type Engine struct {
	FontPath string
}

func NewEngine(fontPath string) *Engine {
	return &Engine{FontPath: fontPath}
}

// Render produces the print document for a badge. QR encoding failures
// degrade to a placeholder glyph so the artifact is never blank; only
// font and PDF-library failures propagate.
func (e *Engine) Render(badge models.Badge, tpl Template, opts *Options) ([]byte, error) {
	o := defaultOptions()
	if opts != nil {
		if opts.FontSize > 0 {
			o.FontSize = opts.FontSize
		}
		if opts.Margins.Top > 0 {
			o.Margins.Top = opts.Margins.Top
		}
		if opts.Margins.Side > 0 {
			o.Margins.Side = opts.Margins.Side
		}
		o.Position = opts.Position
	}

	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{
		PageSize: gopdf.Rect{W: PageWidthMM, H: PageHeightMM},
		Unit:     gopdf.UnitMM,
	})
	pdf.AddPage()

	fontPath := tpl.FontPath
	if fontPath == "" {
		fontPath = e.FontPath
	}
	if err := pdf.AddTTFFont(fontFamily, fontPath); err != nil {
		return nil, fmt.Errorf("failed to load font: %w", err)
	}

	// Resolve the block origin: centered by default, clamped always.
	blockX := (PageWidthMM - BlockWidthMM) / 2
	blockY := (PageHeightMM - BlockHeightMM) / 2
	if o.Position != nil {
		blockX, blockY = ClampBlockOrigin(o.Position.X, o.Position.Y)
	}

	contentX := blockX + o.Margins.Side
	contentWidth := BlockWidthMM - 2*o.Margins.Side
	y := blockY + o.Margins.Top

	// Name, up to two centered lines.
	if err := pdf.SetFont(fontFamily, "", o.FontSize+3); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	for i, line := range SplitName(badge.Name) {
		e.centerText(pdf, line, contentX, contentWidth, y+float64(i)*6)
	}

	// Role line sits a fixed offset below the name block.
	roleY := y + 16
	if err := pdf.SetFont(fontFamily, "", o.FontSize-1); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	e.centerText(pdf, badge.Role, contentX, contentWidth, roleY)

	// Company, wrapped to the content width.
	companyY := roleY + 8
	lineCount := 0
	if badge.Company != "" {
		if err := pdf.SetFont(fontFamily, "", o.FontSize-2); err != nil {
			return nil, fmt.Errorf("failed to set font: %w", err)
		}
		lines, err := pdf.SplitText(badge.Company, contentWidth)
		if err != nil {
			lines = []string{badge.Company}
		}
		for i, line := range lines {
			e.centerText(pdf, line, contentX, contentWidth, companyY+float64(i)*5)
		}
		lineCount = len(lines)
	}

	// Category banner: filled rounded rectangle in the category color.
	bannerY := companyY + float64(lineCount)*5 + 4
	bannerH := 8.0
	r, g, b := CategoryColor(badge.Category)
	pdf.SetFillColor(r, g, b)
	if err := pdf.Rectangle(contentX, bannerY, contentX+contentWidth, bannerY+bannerH, "F", 1.5, 10); err != nil {
		return nil, fmt.Errorf("failed to draw category banner: %w", err)
	}
	if err := pdf.SetFont(fontFamily, "", o.FontSize-1); err != nil {
		return nil, fmt.Errorf("failed to set font: %w", err)
	}
	pdf.SetTextColor(255, 255, 255)
	e.centerText(pdf, strings.ToUpper(badge.Category), contentX, contentWidth, bannerY+2)
	pdf.SetTextColor(0, 0, 0)

	// QR glyph below the banner, horizontally centered in the block.
	if tpl.ShowQR {
		qrX := blockX + (BlockWidthMM-qrSizeMM)/2
		qrY := bannerY + bannerH + qrGapMM
		e.drawQR(pdf, badge.QRCode, qrX, qrY)
	}

	var buf bytes.Buffer
	if err := pdf.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderDataURI renders the badge and wraps the PDF as a data URI for
// direct download/print from a browser context.
func (e *Engine) RenderDataURI(badge models.Badge, tpl Template, opts *Options) (string, error) {
	data, err := e.Render(badge, tpl, opts)
	if err != nil {
		return "", err
	}
	return "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(data), nil
}

func (e *Engine) centerText(pdf *gopdf.GoPdf, text string, x, width, y float64) {
	if text == "" {
		return
	}
	tw, err := pdf.MeasureTextWidth(text)
	if err != nil {
		tw = 0
	}
	pdf.SetX(x + (width-tw)/2)
	pdf.SetY(y)
	pdf.Cell(nil, text)
}

// drawQR embeds a real scannable QR symbol; on any encoding failure it
// draws a QR-like placeholder so the document is never blank. The
// placeholder is not scannable and does not try to be.
func (e *Engine) drawQR(pdf *gopdf.GoPdf, payload string, x, y float64) {
	pngBytes, err := qr.Glyph(payload, 256)
	if err == nil {
		if img, decErr := png.Decode(bytes.NewReader(pngBytes)); decErr == nil {
			rect := &gopdf.Rect{W: qrSizeMM, H: qrSizeMM}
			if imgErr := pdf.ImageFrom(img, x, y, rect); imgErr == nil {
				return
			}
		}
	}
	e.drawFallbackGlyph(pdf, x, y, qrSizeMM)
}

func (e *Engine) drawFallbackGlyph(pdf *gopdf.GoPdf, x, y, size float64) {
	pdf.SetLineWidth(0.4)
	pdf.SetStrokeColor(17, 17, 17)
	pdf.Rectangle(x, y, x+size, y+size, "D", 0, 0)

	mark := size * 0.18
	pdf.SetFillColor(17, 17, 17)
	pdf.Rectangle(x+1.5, y+1.5, x+1.5+mark, y+1.5+mark, "F", 0, 0)
	pdf.Rectangle(x+size-1.5-mark, y+1.5, x+size-1.5, y+1.5+mark, "F", 0, 0)
	pdf.Rectangle(x+1.5, y+size-1.5-mark, x+1.5+mark, y+size-1.5, "F", 0, 0)

	e.centerText(pdf, "QR", x, size, y+size/2-2)
}
