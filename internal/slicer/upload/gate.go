// Package upload validates model uploads and their slicing settings.
package upload

import (
	"path/filepath"
	"strconv"

	"printum/internal/config"
	appErr "printum/pkg/errors"
)

const bytesPerMB = 1024 * 1024

// Gate accepts model files by extension and size.
type Gate struct {
	allowed  config.ExtensionSet
	maxBytes int64
}

// NewGate creates a gate for the allowed extensions and the byte ceiling.
func NewGate(allowed config.ExtensionSet, maxBytes int64) *Gate {
	return &Gate{allowed: allowed, maxBytes: maxBytes}
}

// MaxBytes returns the upload ceiling.
func (g *Gate) MaxBytes() int64 {
	return g.maxBytes
}

// Allowed returns the accepted extensions.
func (g *Gate) Allowed() config.ExtensionSet {
	return g.allowed
}

// Extension returns the lowercase text after the final dot of name, without the dot.
// A name without a dot has no extension.
func Extension(name string) string {
	return config.NormalizeExtension(filepath.Ext(name))
}

// Check validates a candidate upload and returns its extension.
func (g *Gate) Check(name string, size int64) (string, error) {
	ext := Extension(name)
	if !g.allowed.Has(ext) {
		return ext, appErr.New(appErr.UnsupportedExtension).
			WithMessagef("Unsupported file extension \".%s\". Allowed: %s", ext, g.allowed.String()).
			WithDetail("extension", ext).
			WithDetail("allowed", g.allowed.List())
	}
	if size > g.maxBytes {
		return ext, g.TooLarge(size)
	}
	return ext, nil
}

// TooLarge builds the rejection for a file over the ceiling. size may be -1 when the body
// was cut off before the file size was known.
func (g *Gate) TooLarge(size int64) *appErr.Error {
	err := appErr.New(appErr.FileTooLarge).
		WithMessagef("Model file exceeds the %s MB limit", formatMB(g.maxBytes)).
		WithDetail("limitBytes", g.maxBytes)
	if size >= 0 {
		err.WithDetail("sizeBytes", size)
	}
	return err
}

func formatMB(n int64) string {
	return strconv.FormatFloat(float64(n)/bytesPerMB, 'f', -1, 64)
}
