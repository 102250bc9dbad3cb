package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Number is a numeric value carried as text. The API accepts both bare JSON
// numbers and numeric strings for value bounds, and stores the textual form.
type Number string

// UnmarshalJSON accepts `"11"`, `11` and `11.5`.
func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var unquoted string
		if err := json.Unmarshal(data, &unquoted); err != nil {
			return err
		}
		s = unquoted
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	*n = Number(s)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(n))
}

// Float parses the stored text as a float64.
func (n Number) Float() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

func (n Number) String() string {
	return string(n)
}
