package model

import (
	"fmt"
	"strings"
)

// Format is an output image format the converter can encode.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatGIF  Format = "gif"
	FormatTIFF Format = "tiff"
	FormatTGA  Format = "tga"
)

var formatExtensions = map[Format]string{
	FormatPNG:  ".png",
	FormatJPEG: ".jpg",
	FormatGIF:  ".gif",
	FormatTIFF: ".tiff",
	FormatTGA:  ".tga",
}

// recognizedExtensions lists input extensions; matching is case-sensitive.
var recognizedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
	".tga":  true,
}

func AllFormats() []Format {
	return []Format{FormatPNG, FormatJPEG, FormatGIF, FormatTIFF, FormatTGA}
}

func (f Format) Valid() bool {
	_, ok := formatExtensions[f]
	return ok
}

// Extension returns the canonical output extension, including the dot.
func (f Format) Extension() string {
	return formatExtensions[f]
}

func (f Format) String() string {
	return string(f)
}

// ParseFormat accepts a format name or extension, with or without a leading
// dot, in any case ("PNG", ".jpeg", "jpg").
func ParseFormat(raw string) (Format, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	v = strings.TrimPrefix(v, ".")
	switch v {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "gif":
		return FormatGIF, nil
	case "tiff", "tif":
		return FormatTIFF, nil
	case "tga":
		return FormatTGA, nil
	}
	return "", fmt.Errorf("invalid format %q (expected png, jpeg, gif, tiff, or tga)", strings.TrimSpace(raw))
}

func IsRecognizedExtension(ext string) bool {
	return recognizedExtensions[ext]
}

func RecognizedExtensions() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tiff", ".tga"}
}
