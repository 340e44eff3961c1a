package convert

import (
	"strings"

	"imgbatch/internal/model"
)

// SplitExtension splits name at its final dot. ok is false when the name has
// no dot, ends with one, or only starts with one (".png" is a hidden file with
// no extension).
func SplitExtension(name string) (base, ext string, ok bool) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return name, "", false
	}
	return name[:i], name[i:], true
}

// DestFileName replaces a recognized input extension with the canonical
// extension of format. ok is false for unrecognized extensions.
func DestFileName(name string, format model.Format) (dest, ext string, ok bool) {
	base, ext, ok := SplitExtension(name)
	if !ok || !model.IsRecognizedExtension(ext) {
		return "", ext, false
	}
	return base + format.Extension(), ext, true
}
