package bundle

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/louisbranch/boardrules/internal/entity"
	apperrors "github.com/louisbranch/boardrules/internal/platform/errors"
)

// ParseValue converts a decoded scalar into a value of the given kind.
// Enum values must name one of variants when variants are declared.
func ParseValue(kind entity.ValueKind, raw any, variants []string) (entity.Value, error) {
	invalid := func() (entity.Value, error) {
		return entity.Value{}, apperrors.WithMetadata(apperrors.CodeBundleInvalidDocument,
			fmt.Sprintf("%v is not a valid %s value", raw, kind),
			map[string]string{"kind": string(kind)})
	}
	switch kind {
	case entity.KindBool:
		if v, ok := raw.(bool); ok {
			return entity.Bool(v), nil
		}
	case entity.KindInt:
		if n, ok := toFloat(raw); ok && n == math.Trunc(n) {
			return entity.Int(int64(n)), nil
		}
	case entity.KindFloat:
		if n, ok := toFloat(raw); ok {
			return entity.Float(n), nil
		}
	case entity.KindString:
		if v, ok := raw.(string); ok {
			return entity.String(v), nil
		}
	case entity.KindColor:
		if v, ok := raw.(string); ok {
			if c, ok := parseColor(v); ok {
				return entity.Value{Kind: entity.KindColor, Color: c}, nil
			}
		}
	case entity.KindEnum:
		if v, ok := raw.(string); ok && (len(variants) == 0 || slices.Contains(variants, v)) {
			return entity.Enum(v), nil
		}
	default:
		return entity.Value{}, apperrors.WithMetadata(apperrors.CodeBundleUnknownValueKind,
			fmt.Sprintf("unknown value kind %q", kind),
			map[string]string{"kind": string(kind)})
	}
	return invalid()
}

// InferValue picks a value kind from the scalar's decoded Go type.
func InferValue(raw any) (entity.Value, error) {
	switch v := raw.(type) {
	case bool:
		return entity.Bool(v), nil
	case int, int64, uint64:
		n, _ := toFloat(v)
		return entity.Int(int64(n)), nil
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return entity.Int(int64(v)), nil
		}
		return entity.Float(v), nil
	case string:
		return entity.String(v), nil
	}
	return entity.Value{}, apperrors.New(apperrors.CodeBundleInvalidDocument, fmt.Sprintf("cannot infer a value kind for %v", raw))
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	}
	return 0, false
}

// parseColor accepts #rrggbb and #rrggbbaa.
func parseColor(raw string) (entity.Color, bool) {
	hex := strings.TrimPrefix(strings.TrimSpace(raw), "#")
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return entity.Color{}, false
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return entity.Color{}, false
	}
	return entity.Color{R: uint8(n >> 24), G: uint8(n >> 16), B: uint8(n >> 8), A: uint8(n)}, true
}
