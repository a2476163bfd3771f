// SPDX-License-Identifier: MIT

// Package validate accumulates field-level configuration problems so they
// can be reported together.
package validate

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Error is one rejected field.
type Error struct {
	Field   string
	Value   any
	Message string
}

func (e Error) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// ValidationError bundles every problem found by a Validator.
type ValidationError struct {
	errors []Error
}

// Errors returns the individual problems.
func (e ValidationError) Errors() []Error {
	return e.errors
}

func (e ValidationError) Error() string {
	msgs := make([]string, len(e.errors))
	for i, err := range e.errors {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validator collects errors. The zero value is not usable; call New.
type Validator struct {
	errors []Error
}

// New creates an empty validator.
func New() *Validator {
	return &Validator{errors: make([]Error, 0)}
}

// AddError records a problem with field.
func (v *Validator) AddError(field, message string, value any) {
	v.errors = append(v.errors, Error{Field: field, Value: value, Message: message})
}

// IsValid reports whether nothing was recorded.
func (v *Validator) IsValid() bool {
	return len(v.errors) == 0
}

// Err returns nil or a ValidationError holding a copy of the problems.
func (v *Validator) Err() error {
	if len(v.errors) == 0 {
		return nil
	}
	return ValidationError{errors: slices.Clone(v.errors)}
}

// URL requires an absolute URL with a host and one of the schemes.
func (v *Validator) URL(field, value string, schemes []string) {
	if value == "" {
		v.AddError(field, "URL cannot be empty", value)
		return
	}
	u, err := url.Parse(value)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid URL: %v", err), value)
		return
	}
	if u.Host == "" {
		v.AddError(field, "URL must have a host", value)
		return
	}
	if len(schemes) > 0 && !slices.Contains(schemes, u.Scheme) {
		v.AddError(field, fmt.Sprintf("unsupported URL scheme %q (allowed: %v)", u.Scheme, schemes), value)
	}
}

// Range requires minVal <= value <= maxVal.
func (v *Validator) Range(field string, value, minVal, maxVal int) {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("value must be between %d and %d, got %d", minVal, maxVal, value), value)
	}
}

// FloatRange requires minVal <= value <= maxVal.
func (v *Validator) FloatRange(field string, value, minVal, maxVal float64) {
	if value < minVal || value > maxVal {
		v.AddError(field, fmt.Sprintf("value must be between %g and %g, got %g", minVal, maxVal, value), value)
	}
}

// DurationMin requires value >= minVal.
func (v *Validator) DurationMin(field string, value, minVal time.Duration) {
	if value < minVal {
		v.AddError(field, fmt.Sprintf("duration must be at least %s, got %s", minVal, value), value)
	}
}

// NonNegative requires value >= 0.
func (v *Validator) NonNegative(field string, value int64) {
	if value < 0 {
		v.AddError(field, fmt.Sprintf("value cannot be negative, got %d", value), value)
	}
}

// NotEmpty rejects empty and whitespace-only strings.
func (v *Validator) NotEmpty(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "value cannot be empty", value)
	}
}

// OneOf requires value to be one of allowed.
func (v *Validator) OneOf(field, value string, allowed []string) {
	if !slices.Contains(allowed, value) {
		v.AddError(field, fmt.Sprintf("value must be one of %v, got %q", allowed, value), value)
	}
}

// Directory checks a directory path. Missing directories are created
// unless mustExist is set.
func (v *Validator) Directory(field, path string, mustExist bool) {
	if path == "" {
		v.AddError(field, "directory path cannot be empty", path)
		return
	}
	if strings.Contains(path, "..") {
		v.AddError(field, "path contains traversal sequences (..)", path)
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		v.AddError(field, fmt.Sprintf("invalid path: %v", err), path)
		return
	}
	info, err := os.Stat(abs)
	switch {
	case os.IsNotExist(err) && mustExist:
		v.AddError(field, "directory does not exist", path)
	case os.IsNotExist(err):
		if err := os.MkdirAll(abs, 0o750); err != nil {
			v.AddError(field, fmt.Sprintf("cannot create directory: %v", err), path)
		}
	case err != nil:
		v.AddError(field, fmt.Sprintf("cannot access directory: %v", err), path)
	case !info.IsDir():
		v.AddError(field, "path is not a directory", path)
	}
}

// File requires an existing regular file. Empty paths are allowed.
func (v *Validator) File(field, path string) {
	if path == "" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		v.AddError(field, fmt.Sprintf("cannot access file: %v", err), path)
		return
	}
	if !info.Mode().IsRegular() {
		v.AddError(field, "path is not a regular file", path)
	}
}
