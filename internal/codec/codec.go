package codec

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	"golang.org/x/xerrors"
)

type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	BMP  Format = "bmp"
)

const jpegQuality = 90

var ErrUnsupportedFormat = xerrors.New("unsupported image format")

var inputExtensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".bmp":  {},
	".gif":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

// IsImageFile reports whether path has an extension Decode understands.
func IsImageFile(path string) bool {
	_, ok := inputExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	case "bmp":
		return BMP, nil
	default:
		return "", xerrors.Errorf("%q: %w", s, ErrUnsupportedFormat)
	}
}

// FormatFromPath picks the output format from a file name; anything that is
// not JPEG or BMP is written as PNG.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return JPEG
	case ".bmp":
		return BMP
	default:
		return PNG
	}
}

func (f Format) Extension() string {
	return string(f)
}

func (f Format) ContentType() string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case BMP:
		return "image/bmp"
	default:
		return "image/png"
	}
}

func Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, xerrors.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func ReadFile(path string) ([]byte, error) {
	if !IsImageFile(path) {
		return nil, xerrors.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to read image file: %w", err)
	}
	return data, nil
}

func DecodeFile(path string) (image.Image, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := Decode(data)
	if err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func Encode(w io.Writer, img image.Image, f Format) error {
	var err error
	switch f {
	case PNG:
		err = png.Encode(w, img)
	case JPEG:
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case BMP:
		err = bmp.Encode(w, img)
	default:
		return xerrors.Errorf("%q: %w", f, ErrUnsupportedFormat)
	}
	if err != nil {
		return xerrors.Errorf("failed to encode %s image: %w", f, err)
	}
	return nil
}

func EncodeBytes(img image.Image, f Format) ([]byte, error) {
	var buffer bytes.Buffer
	if err := Encode(&buffer, img, f); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
