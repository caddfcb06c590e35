package scenario

import (
	"strings"

	"github.com/louisbranch/boardrules/internal/hexgrid"
)

func readString(args map[string]any, key string) string {
	value, ok := args[key]
	if !ok || value == nil {
		return ""
	}
	text, _ := value.(string)
	return strings.TrimSpace(text)
}

func readInt(args map[string]any, key string, fallback int) int {
	switch value := args[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	default:
		return fallback
	}
}

func readBool(args map[string]any, key string, fallback bool) bool {
	value, ok := args[key].(bool)
	if !ok {
		return fallback
	}
	return value
}

func readMap(args map[string]any, key string) map[string]any {
	value, _ := args[key].(map[string]any)
	return value
}

func readPosition(args map[string]any) hexgrid.Position {
	return hexgrid.At(readInt(args, "q", 0), readInt(args, "r", 0))
}
