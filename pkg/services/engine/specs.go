package engine

import (
	"fmt"

	"github.com/de-tools/cloud-warden/pkg/models/domain"
)

// Accessors over the heterogeneous specs / condition_config bags. Inventory
// specs come back from JSON, so numbers arrive as float64 and lists as
// []any; everything here tolerates missing keys and wrong shapes.

func compliant(format string, args ...any) domain.Outcome {
	return domain.Outcome{Status: domain.StatusCompliant, Detail: fmt.Sprintf(format, args...)}
}

func nonCompliant(format string, args ...any) domain.Outcome {
	return domain.Outcome{Status: domain.StatusNonCompliant, Detail: fmt.Sprintf(format, args...)}
}

func notApplicable(format string, args ...any) domain.Outcome {
	return domain.Outcome{Status: domain.StatusNotApplicable, Detail: fmt.Sprintf(format, args...)}
}

func specString(specs map[string]any, key string) (string, bool) {
	v, ok := specs[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func specBool(specs map[string]any, key string) (bool, bool) {
	v, ok := specs[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func specNumber(specs map[string]any, key string) (float64, bool) {
	v, ok := specs[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func specMap(specs map[string]any, key string) (map[string]any, bool) {
	v, ok := specs[key]
	if !ok {
		return nil, false
	}
	m, ok := v.(map[string]any)
	return m, ok
}

func specList(specs map[string]any, key string) ([]any, bool) {
	v, ok := specs[key]
	if !ok {
		return nil, false
	}
	l, ok := v.([]any)
	return l, ok
}

func specStringList(specs map[string]any, key string) ([]string, bool) {
	v, ok := specs[key]
	if !ok {
		return nil, false
	}
	switch l := v.(type) {
	case []string:
		return l, true
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, true
	default:
		return nil, false
	}
}

// Condition config accessors with defaults.

func cfgString(cfg map[string]any, key, fallback string) string {
	if s, ok := specString(cfg, key); ok {
		return s
	}
	return fallback
}

func cfgBool(cfg map[string]any, key string, fallback bool) bool {
	if b, ok := specBool(cfg, key); ok {
		return b
	}
	return fallback
}

func cfgInt(cfg map[string]any, key string, fallback int) int {
	if n, ok := specNumber(cfg, key); ok {
		return int(n)
	}
	return fallback
}

func cfgStringList(cfg map[string]any, key string) []string {
	l, _ := specStringList(cfg, key)
	return l
}

func cfgIntList(cfg map[string]any, key string, fallback []int) []int {
	v, ok := cfg[key]
	if !ok {
		return fallback
	}
	l, ok := v.([]any)
	if !ok {
		if ints, ok := v.([]int); ok && len(ints) > 0 {
			return ints
		}
		return fallback
	}
	out := make([]int, 0, len(l))
	for _, item := range l {
		if n, ok := item.(float64); ok {
			out = append(out, int(n))
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
