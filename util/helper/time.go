package helper_util

import (
	"fmt"
	"time"

	"github.com/oarkflow/date"
)

// ParseTime parses timestamps in any of the layouts SQL drivers hand back.
func ParseTime(s string) (time.Time, error) {
	return date.Parse(s)
}

// ParseNullableTime converts a scanned column into a time pointer. NULL maps
// to nil.
func ParseNullableTime(value interface{}) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &v, nil
	case []byte:
		return ParseNullableTime(string(v))
	case string:
		if v == "" {
			return nil, nil
		}
		t, err := ParseTime(v)
		if err != nil {
			return nil, err
		}
		return &t, nil
	default:
		return nil, fmt.Errorf("unsupported type for time parsing: %T", value)
	}
}

// ParseRequiredTime is ParseNullableTime for NOT NULL columns.
func ParseRequiredTime(value interface{}) (time.Time, error) {
	t, err := ParseNullableTime(value)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return time.Time{}, fmt.Errorf("unexpected NULL timestamp")
	}
	return *t, nil
}
