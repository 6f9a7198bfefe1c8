package upstream

import (
	"encoding/json"
	"strconv"
	"strings"
)

// LooseNumber decodes a JSON value that should be numeric but, with these
// providers, occasionally arrives as a quoted string, null, or garbage.
// Anything that cannot be interpreted as a number is recorded as invalid
// rather than failing the decode of the whole payload.
type LooseNumber struct {
	Value float64
	Valid bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *LooseNumber) UnmarshalJSON(b []byte) error {
	n.Value, n.Valid = 0, false
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		n.Value, n.Valid = f, true
		return nil
	}
	// Quoted numeric string, e.g. "12.5".
	var qs string
	if err := json.Unmarshal(b, &qs); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(qs), 64); err == nil {
			n.Value, n.Valid = f, true
		}
	}
	return nil
}
