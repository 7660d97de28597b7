package qrcode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

var ErrRender = errors.New("failed to render qr code")

type Format string

const (
	FormatSVG     Format = "svg"
	FormatDataURL Format = "data_url"
)

const (
	DefaultSize       = 300
	DefaultMargin     = 2
	DefaultForeground = "#000000"
	DefaultBackground = "#FFFFFF"
)

type Image struct {
	Format   Format
	MimeType string
	// Data is SVG markup or a base64 PNG data URL, depending on Format.
	Data string
}

type RenderOptions struct {
	Size       int
	Margin     int
	Foreground string
	Background string
}

// Renderer draws QR codes at error correction level M.
type Renderer struct {
	size   int
	margin int
	fg     color.RGBA
	bg     color.RGBA
	fgHex  string
	bgHex  string
}

func NewRenderer(opts RenderOptions) (*Renderer, error) {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.Margin <= 0 {
		opts.Margin = DefaultMargin
	}
	if opts.Foreground == "" {
		opts.Foreground = DefaultForeground
	}
	if opts.Background == "" {
		opts.Background = DefaultBackground
	}

	fg, err := parseHexColor(opts.Foreground)
	if err != nil {
		return nil, err
	}
	bg, err := parseHexColor(opts.Background)
	if err != nil {
		return nil, err
	}

	return &Renderer{
		size:   opts.Size,
		margin: opts.Margin,
		fg:     fg,
		bg:     bg,
		fgHex:  strings.ToUpper(opts.Foreground),
		bgHex:  strings.ToUpper(opts.Background),
	}, nil
}

func (r *Renderer) Render(encoded string, format Format) (Image, error) {
	if encoded == "" {
		return Image{}, fmt.Errorf("%w: empty content", ErrRender)
	}

	code, err := qr.Encode(encoded, qr.M, qr.Auto)
	if err != nil {
		return Image{}, fmt.Errorf("%w: qr.Encode -> %v", ErrRender, err)
	}

	switch format {
	case FormatSVG:
		return Image{Format: FormatSVG, MimeType: "image/svg+xml", Data: r.svg(code)}, nil
	case FormatDataURL:
		data, err := r.pngDataURL(code)
		if err != nil {
			return Image{}, err
		}
		return Image{Format: FormatDataURL, MimeType: "image/png", Data: data}, nil
	default:
		return Image{}, fmt.Errorf("%w: unknown format %q", ErrRender, format)
	}
}

func (r *Renderer) svg(code barcode.Barcode) string {
	n := code.Bounds().Dx()
	total := n + 2*r.margin

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`,
		r.size, r.size, total, total)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="%s"/>`, total, total, r.bgHex)
	fmt.Fprintf(&b, `<path fill="%s" d="`, r.fgHex)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if isDark(code.At(x, y)) {
				fmt.Fprintf(&b, "M%d %dh1v1h-1z", x+r.margin, y+r.margin)
			}
		}
	}
	b.WriteString(`"/></svg>`)

	return b.String()
}

func (r *Renderer) pngDataURL(code barcode.Barcode) (string, error) {
	n := code.Bounds().Dx()
	total := n + 2*r.margin

	module := r.size / total
	if module < 1 {
		module = 1
	}
	side := r.size
	if module*total > side {
		side = module * total
	}
	offset := (side - module*n) / 2

	img := image.NewRGBA(image.Rect(0, 0, side, side))
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			img.SetRGBA(x, y, r.bg)
		}
	}
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			if !isDark(code.At(x, y)) {
				continue
			}
			for dy := 0; dy < module; dy++ {
				for dx := 0; dx < module; dx++ {
					img.SetRGBA(offset+x*module+dx, offset+y*module+dy, r.fg)
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("%w: png.Encode -> %v", ErrRender, err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func isDark(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r+g+b < 3*0x8000
}

func parseHexColor(hex string) (color.RGBA, error) {
	s := strings.TrimPrefix(hex, "#")
	if len(s) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", hex)
	}

	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", hex)
	}

	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
