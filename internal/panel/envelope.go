package panel

import (
	"encoding/json"
	"strings"
)

// envelope mirrors the panel's response shape: {"result", "mens", "data"}.
type envelope struct {
	Result  bool
	Message string
	Data    json.RawMessage
}

// UnmarshalJSON accepts result as a bool, a number or a string.
func (e *envelope) UnmarshalJSON(data []byte) error {
	var a struct {
		Result json.RawMessage `json:"result"`
		Mens   json.RawMessage `json:"mens"`
		Data   json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	e.Message = strings.TrimSpace(trimQuotes(a.Mens))
	e.Data = a.Data
	if len(e.Data) == 0 {
		e.Data = json.RawMessage("null")
	}
	if len(a.Result) != 0 {
		var b bool
		if err := json.Unmarshal(a.Result, &b); err == nil {
			e.Result = b
		} else {
			s := strings.TrimSpace(trimQuotes(a.Result))
			e.Result = strings.EqualFold(s, "true") || strings.EqualFold(s, "success") || s == "1"
		}
	}
	return nil
}

func trimQuotes(raw json.RawMessage) string {
	return strings.Trim(strings.TrimSpace(string(raw)), `"`)
}
