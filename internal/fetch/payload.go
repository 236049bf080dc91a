package fetch

import (
	"bytes"
	"encoding/json"
)

// IsEmptyPayload reports whether a response carries nothing usable: no bytes
// after trimming, or a JSON value that is null, false, 0, "", [] or {}.
// Non-JSON bodies with content are not empty.
func IsEmptyPayload(body []byte) bool {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return true
	}

	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return false
	}

	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
