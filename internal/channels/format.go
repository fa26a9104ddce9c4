package channels

import (
	"encoding/json"
	"strconv"
)

// amount renders a JSON number the way it was written: 42 not 42.000000.
func amount(v any) string {
	f, ok := v.(float64)
	if !ok {
		return "?"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func payloadDump(payload map[string]any) string {
	b, err := json.Marshal(payload)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func stringField(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}
