package utils

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

func itoa64(n int64) string {
	return strconv.FormatInt(n, 10)
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case float64:
		if val == float64(int64(val)) {
			return itoa64(int64(val))
		}
		return ftoa(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// UniqueSlice returns s without duplicates, keeping first occurrences.
func UniqueSlice[T comparable](s []T) []T {
	seen := make(map[T]struct{}, len(s))
	out := make([]T, 0, len(s))
	for _, v := range s {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var validate = validator.New()

// ValidateStruct runs go-playground validation and flattens the failures into
// one error.
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return ProcessValidationErrors(err)
	}
	return nil
}

func ProcessValidationErrors(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", e.Field(), e.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrorInvalidInput, strings.Join(msgs, "; "))
}
