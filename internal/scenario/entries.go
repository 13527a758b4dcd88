package scenario

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrDuplicateName = errors.New("name already exists")
	ErrNotFound      = errors.New("name not found")
	ErrEmptyName     = errors.New("name is required")
	ErrNegativeValue = errors.New("value must be a non-negative number")
	ErrReservedName  = errors.New("name is reserved")
)

// CheckValue rejects negative and non-finite numbers.
func CheckValue(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%v: %w", v, ErrNegativeValue)
	}
	return nil
}

// AddEntry inserts a new named value. Existing names are rejected and m is left untouched.
func AddEntry(m map[string]float64, name string, value float64) error {
	if name == "" {
		return ErrEmptyName
	}
	if err := CheckValue(value); err != nil {
		return err
	}
	if _, ok := m[name]; ok {
		return fmt.Errorf("%q: %w", name, ErrDuplicateName)
	}
	m[name] = value
	return nil
}

// SetEntry updates the value of an existing name.
func SetEntry(m map[string]float64, name string, value float64) error {
	if _, ok := m[name]; !ok {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err := CheckValue(value); err != nil {
		return err
	}
	m[name] = value
	return nil
}

// DeleteEntry removes an existing name.
func DeleteEntry(m map[string]float64, name string) error {
	if _, ok := m[name]; !ok {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	delete(m, name)
	return nil
}

// RenameEntry returns a new map with oldName replaced by newName.
// The input map is not modified.
func RenameEntry[V any](m map[string]V, oldName, newName string) (map[string]V, error) {
	if newName == "" {
		return nil, ErrEmptyName
	}
	if _, ok := m[oldName]; !ok {
		return nil, fmt.Errorf("%q: %w", oldName, ErrNotFound)
	}
	if oldName == newName {
		return m, nil
	}
	if _, ok := m[newName]; ok {
		return nil, fmt.Errorf("%q: %w", newName, ErrDuplicateName)
	}

	out := make(map[string]V, len(m))
	for k, v := range m {
		if k == oldName {
			out[newName] = v
			continue
		}
		out[k] = v
	}
	return out, nil
}
