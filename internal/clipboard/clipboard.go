// Package clipboard puts share links where the user can paste them.
package clipboard

import (
	"errors"
	"fmt"
	"io"

	sysclip "github.com/atotto/clipboard"
	qrcode "github.com/skip2/go-qrcode"
)

// ErrUnavailable is returned when no system clipboard can be reached.
var ErrUnavailable = errors.New("clipboard unavailable")

// System writes to the operating system clipboard.
type System struct{}

func (System) Copy(text string) error {
	if sysclip.Unsupported {
		return ErrUnavailable
	}
	if err := sysclip.WriteAll(text); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Printer shows a link that could not be copied: the URL on one line and,
// unless disabled, a QR code drawn with block characters.
type Printer struct {
	W      io.Writer
	NoCode bool
}

func (p Printer) Show(url string) {
	fmt.Fprintf(p.W, "%s\n", url)
	if p.NoCode {
		return
	}
	code, err := QR(url)
	if err != nil {
		return
	}
	fmt.Fprint(p.W, code)
}

// QR renders url as a terminal QR code.
func QR(url string) (string, error) {
	code, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return code.ToSmallString(false), nil
}

// PNG renders url as a square PNG of the given size in pixels.
func PNG(url string, size int) ([]byte, error) {
	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr code: %w", err)
	}
	return png, nil
}
