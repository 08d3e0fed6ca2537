package config

import (
	"fmt"
	"strconv"
	"strings"
)

// envSource reads typed overrides and collects parse failures instead of falling back
// silently to defaults.
type envSource struct {
	lookup func(string) (string, bool)
	errs   []string
}

func (e *envSource) raw(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envSource) setString(key string, dst *string) bool {
	v, ok := e.lookup(key)
	if !ok {
		return false
	}
	*dst = v
	return true
}

func (e *envSource) setInt(key string, dst *int) {
	v, ok := e.raw(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: expected integer, got %q", key, v))
		return
	}
	*dst = n
}

func (e *envSource) setFloat(key string, dst *float64) {
	v, ok := e.raw(key)
	if !ok || v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: expected number, got %q", key, v))
		return
	}
	*dst = f
}

func (e *envSource) setBool(key string, dst *bool) {
	v, ok := e.raw(key)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: expected boolean, got %q", key, v))
		return
	}
	*dst = b
}
