package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// StringArray is an ordered list of strings persisted as a JSON column.
type StringArray []string

// Scan implements sql.Scanner. SQLite hands back either []byte or string.
func (s *StringArray) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*s = StringArray{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal StringArray value: %v", value)
	}
	if len(raw) == 0 {
		*s = StringArray{}
		return nil
	}
	return json.Unmarshal(raw, s)
}

// Value implements driver.Valuer
func (s StringArray) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Contains reports whether v is an exact member of the array.
func (s StringArray) Contains(v string) bool {
	return slices.Contains(s, v)
}

// Join returns the elements joined by sep
func (s StringArray) Join(sep string) string {
	return strings.Join(s, sep)
}
