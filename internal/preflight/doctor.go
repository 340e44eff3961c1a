// Package preflight checks that a conversion can run before any file is
// touched.
package preflight

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"strings"

	"imgbatch/internal/history"
	"imgbatch/internal/imagecodec"
	"imgbatch/internal/model"
	"imgbatch/internal/runstore"
)

type Options struct {
	SourceDir      string
	DestDir        string
	ConfigPath     string
	HistoryEnabled bool
	HistoryPath    string
	LockDir        string
	Codec          imagecodec.Codec
}

type Result struct {
	OK     bool    `json:"ok"`
	Checks []Check `json:"checks"`
}

type Check struct {
	Name    string `json:"name"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func Doctor(ctx context.Context, opts Options) Result {
	codec := opts.Codec
	if codec == nil {
		codec = imagecodec.New()
	}

	checks := make([]Check, 0, 10)
	checks = append(checks, checkSource(opts.SourceDir))
	checks = append(checks, checkDest(opts.LockDir, opts.DestDir))
	for _, format := range model.AllFormats() {
		checks = append(checks, checkCodec(codec, format))
	}
	if strings.TrimSpace(opts.ConfigPath) != "" {
		ok, msg := ensureWritableDir(filepath.Dir(opts.ConfigPath))
		checks = append(checks, Check{Name: "directory:config", OK: ok, Message: msg})
	}
	checks = append(checks, checkHistory(ctx, opts.HistoryEnabled, opts.HistoryPath))

	ok := true
	for _, c := range checks {
		if !c.OK {
			ok = false
			break
		}
	}
	return Result{OK: ok, Checks: checks}
}

func checkSource(dir string) Check {
	c := Check{Name: "directory:source"}
	if strings.TrimSpace(dir) == "" {
		c.OK = true
		c.Message = "not configured"
		return c
	}
	names, err := runstore.ListNames(dir, true)
	if err != nil {
		c.Message = err.Error()
		return c
	}
	recognized := 0
	for _, name := range names {
		i := strings.LastIndexByte(name, '.')
		if i > 0 && model.IsRecognizedExtension(name[i:]) {
			recognized++
		}
	}
	c.OK = true
	c.Message = fmt.Sprintf("readable, %d files, %d with recognized extensions", len(names), recognized)
	return c
}

func checkDest(lockDir, dir string) Check {
	c := Check{Name: "directory:dest"}
	if strings.TrimSpace(dir) == "" {
		c.OK = true
		c.Message = "not configured"
		return c
	}
	if err := runstore.CheckWritable(dir); err != nil {
		c.Message = err.Error()
		return c
	}
	lock, err := runstore.AcquireDirLock(lockDir, dir)
	switch {
	case errors.Is(err, runstore.ErrLocked):
		c.Message = "writable, but another job is converting into it"
		return c
	case err != nil:
		c.OK = true
		c.Message = "writable (lock unavailable: " + err.Error() + ")"
		return c
	}
	_ = lock.Release()
	c.OK = true
	c.Message = "writable"
	return c
}

func checkCodec(codec imagecodec.Codec, format model.Format) Check {
	c := Check{Name: "codec:" + string(format)}
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.NRGBA{R: 255, A: 255})

	var buf bytes.Buffer
	if err := codec.Encode(&buf, img, format); err != nil {
		c.Message = err.Error()
		return c
	}
	out, err := codec.Decode(&buf, format.Extension())
	if err != nil {
		c.Message = err.Error()
		return c
	}
	if out.Bounds().Dx() != 2 || out.Bounds().Dy() != 2 {
		c.Message = fmt.Sprintf("round trip changed size to %v", out.Bounds().Size())
		return c
	}
	c.OK = true
	c.Message = "encode and decode ok"
	return c
}

func checkHistory(ctx context.Context, enabled bool, path string) Check {
	c := Check{Name: "history"}
	if !enabled {
		c.OK = true
		c.Message = "disabled"
		return c
	}
	store, err := history.Open(ctx, path)
	if err != nil {
		c.Message = err.Error()
		return c
	}
	_ = store.Close()
	c.OK = true
	c.Message = "database ready at " + path
	return c
}

func ensureWritableDir(path string) (bool, string) {
	if strings.TrimSpace(path) == "" {
		return false, "empty path"
	}
	if err := runstore.Mkdir(path); err != nil {
		return false, err.Error()
	}
	if err := runstore.CheckWritable(path); err != nil {
		return false, err.Error()
	}
	return true, "writable"
}
