package qr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	// Registers the JPEG decoder for LoadLogo.
	_ "image/jpeg"

	"github.com/skip2/go-qrcode"
	"golang.org/x/image/draw"
)

const (
	// logoMaxRatio bounds the padded overlay relative to the QR side. High
	// recovery tolerates roughly 30% damage, so 20% stays readable.
	logoMaxRatio = 0.20
	paddingRatio = 0.10
)

var ErrInvalidID = errors.New("event and attendee ids must be positive")

type Composer struct {
	BaseURL string
	Size    int
	Logo    image.Image
}

func NewComposer(baseURL string, size int, logo image.Image) *Composer {
	return &Composer{BaseURL: baseURL, Size: size, Logo: logo}
}

// CheckinURL is the address the attendee's QR code encodes.
func (c *Composer) CheckinURL(eventID, attendeeID int64) string {
	return fmt.Sprintf("%s/admin/attendance/%d/%d", c.BaseURL, eventID, attendeeID)
}

// Compose renders the check-in QR code as PNG, with the logo centred on top
// when one is configured.
func (c *Composer) Compose(eventID, attendeeID int64) ([]byte, error) {
	if eventID <= 0 || attendeeID <= 0 {
		return nil, ErrInvalidID
	}

	q, err := qrcode.New(c.CheckinURL(eventID, attendeeID), qrcode.High)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	base := q.Image(c.Size)

	canvas := image.NewRGBA(base.Bounds())
	draw.Draw(canvas, canvas.Bounds(), base, base.Bounds().Min, draw.Src)

	if c.Logo != nil {
		overlayLogo(canvas, c.Logo)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("png encode: %w", err)
	}
	return buf.Bytes(), nil
}

func overlayLogo(canvas *image.RGBA, logo image.Image) {
	side := canvas.Bounds().Dx()
	box, inner := LogoBounds(side, logo.Bounds().Dx(), logo.Bounds().Dy())
	if inner.Empty() {
		return
	}
	draw.Draw(canvas, box, image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(canvas, inner, logo, logo.Bounds(), draw.Over, nil)
}

// LogoBounds returns the white backing box and the logo rectangle inside it
// for a QR code of the given side. The box is centred and never wider or
// taller than 20% of the side. The logo keeps its aspect ratio.
func LogoBounds(side, logoW, logoH int) (box, inner image.Rectangle) {
	if side <= 0 || logoW <= 0 || logoH <= 0 {
		return image.Rectangle{}, image.Rectangle{}
	}

	maxSide := int(float64(side) * logoMaxRatio)
	pad := int(float64(maxSide) * paddingRatio)
	avail := maxSide - 2*pad
	if avail <= 0 {
		return image.Rectangle{}, image.Rectangle{}
	}

	w, h := avail, avail
	if logoW >= logoH {
		h = max(1, logoH*avail/logoW)
	} else {
		w = max(1, logoW*avail/logoH)
	}

	boxW, boxH := w+2*pad, h+2*pad
	x0 := (side - boxW) / 2
	y0 := (side - boxH) / 2
	box = image.Rect(x0, y0, x0+boxW, y0+boxH)
	inner = image.Rect(x0+pad, y0+pad, x0+pad+w, y0+pad+h)
	return box, inner
}

// LoadLogo decodes a PNG or JPEG logo. An empty path means no logo.
func LoadLogo(path string) (image.Image, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open logo: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode logo %s: %w", path, err)
	}
	return img, nil
}
