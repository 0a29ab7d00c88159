package scan

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
)

// ErrNotFound means the frame holds no readable code. It is the common case
// between scans and is not treated as an error state.
var ErrNotFound = errors.New("scan: no code in frame")

// Decoder extracts an identifier from a frame.
type Decoder interface {
	Decode(img image.Image) (string, error)
}

// QRDecoder reads QR codes.
type QRDecoder struct {
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

func NewQRDecoder() *QRDecoder {
	return &QRDecoder{
		reader: qrcode.NewQRCodeReader(),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

func (d *QRDecoder) Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("binarize frame: %w", err)
	}
	result, err := d.reader.Decode(bmp, d.hints)
	if err != nil {
		var nf gozxing.NotFoundException
		if errors.As(err, &nf) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("decode qr: %w", err)
	}
	return result.GetText(), nil
}

// CenterBox copies the size×size square at the centre of img into a new
// image anchored at the origin. A size of 0, or one that does not fit,
// returns img unchanged.
func CenterBox(img image.Image, size int) image.Image {
	b := img.Bounds()
	if size <= 0 || size >= b.Dx() || size >= b.Dy() {
		return img
	}
	x0 := b.Min.X + (b.Dx()-size)/2
	y0 := b.Min.Y + (b.Dy()-size)/2
	r := image.Rect(x0, y0, x0+size, y0+size)

	out := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}
