// Package imagecodec decodes source images and encodes them into the
// supported output formats.
package imagecodec

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"imgbatch/internal/model"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrCorruptData       = errors.New("corrupt image data")
)

const DefaultJPEGQuality = 90

// Codec is the decode/encode capability used by the conversion pipeline.
// ext is the source extension (".png", ".tga", ...); it is consulted only
// when the content has no recognizable signature.
type Codec interface {
	Decode(r io.Reader, ext string) (image.Image, error)
	Encode(w io.Writer, img image.Image, format model.Format) error
}

// Standard is the stock Codec.
type Standard struct {
	JPEGQuality int
}

func New() Standard {
	return Standard{JPEGQuality: DefaultJPEGQuality}
}

type decoder struct {
	name   string
	magic  [][]byte
	decode func(io.Reader) (image.Image, error)
	config func(io.Reader) (image.Config, error)
}

// TGA has no signature, so it is never sniffed; see decoderFor.
var decoders = []decoder{
	{name: "png", magic: [][]byte{[]byte("\x89PNG\r\n\x1a\n")}, decode: png.Decode, config: png.DecodeConfig},
	{name: "jpeg", magic: [][]byte{{0xff, 0xd8}}, decode: jpeg.Decode, config: jpeg.DecodeConfig},
	{name: "gif", magic: [][]byte{[]byte("GIF87a"), []byte("GIF89a")}, decode: gif.Decode, config: gif.DecodeConfig},
	{name: "bmp", magic: [][]byte{[]byte("BM")}, decode: bmp.Decode, config: bmp.DecodeConfig},
	{name: "tiff", magic: [][]byte{[]byte("II*\x00"), []byte("MM\x00*")}, decode: tiff.Decode, config: tiff.DecodeConfig},
}

var tgaDecoder = decoder{name: "tga", decode: tga.Decode, config: tga.DecodeConfig}

// decoderFor sniffs the content signature first so a mislabelled file still
// decodes; the extension only selects TGA.
func decoderFor(br *bufio.Reader, ext string) (decoder, bool) {
	head, _ := br.Peek(8)
	for _, d := range decoders {
		for _, m := range d.magic {
			if bytes.HasPrefix(head, m) {
				return d, true
			}
		}
	}
	if strings.EqualFold(ext, ".tga") {
		return tgaDecoder, true
	}
	return decoder{}, false
}

func (c Standard) Decode(r io.Reader, ext string) (image.Image, error) {
	br := bufio.NewReader(r)
	d, ok := decoderFor(br, ext)
	if !ok {
		return nil, fmt.Errorf("decode %s: %w", ext, ErrUnsupportedFormat)
	}
	img, err := d.decode(br)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w: %v", d.name, ErrCorruptData, err)
	}
	return img, nil
}

func (c Standard) Encode(w io.Writer, img image.Image, format model.Format) error {
	var err error
	switch format {
	case model.FormatPNG:
		err = png.Encode(w, img)
	case model.FormatJPEG:
		quality := c.JPEGQuality
		if quality <= 0 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		err = jpeg.Encode(w, flatten(img), &jpeg.Options{Quality: quality})
	case model.FormatGIF:
		err = gif.Encode(w, img, &gif.Options{NumColors: 256})
	case model.FormatTIFF:
		err = tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	case model.FormatTGA:
		err = tga.Encode(w, img)
	default:
		return fmt.Errorf("encode %q: %w", string(format), ErrUnsupportedFormat)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return nil
}

// flatten composites translucent images over white; JPEG has no alpha channel.
func flatten(img image.Image) image.Image {
	if opaque, ok := img.(interface{ Opaque() bool }); ok && opaque.Opaque() {
		return img
	}
	b := img.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, b, img, b.Min, draw.Over)
	return dst
}

// Info describes an image without decoding its pixels.
type Info struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// Probe reads only the header of the image at path.
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	d, ok := decoderFor(br, extOf(path))
	if !ok {
		return Info{}, fmt.Errorf("probe %s: %w", path, ErrUnsupportedFormat)
	}
	cfg, err := d.config(br)
	if err != nil {
		return Info{}, fmt.Errorf("probe %s: %w: %v", path, ErrCorruptData, err)
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: d.name}, nil
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return path[i:]
}
