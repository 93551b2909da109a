package model

import (
	"encoding/json"
	"time"

	"github.com/evergreen-ci/utility"
	"github.com/pkg/errors"
)

// APITimeFormat is the layout of timestamps in API responses.
const APITimeFormat = "2006-01-02T15:04:05.000Z07:00"

// APIString is a nullable string in an API model.
type APIString *string

func ToAPIString(in string) APIString { return utility.ToStringPtr(in) }

func FromAPIString(in APIString) string { return utility.FromStringPtr(in) }

// APITime is a time that is always rendered in UTC.
type APITime time.Time

// NewTime returns an APITime for t, converted to UTC and truncated to
// milliseconds.
func NewTime(t time.Time) APITime {
	return APITime(t.In(time.UTC).Truncate(time.Millisecond))
}

func (t APITime) MarshalJSON() ([]byte, error) {
	tt := time.Time(t)
	if tt.IsZero() {
		return []byte("null"), nil
	}

	return json.Marshal(tt.In(time.UTC).Format(APITimeFormat))
}

func (t *APITime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = APITime(time.Time{})
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.Wrap(err, "time must be a string")
	}

	parsed, err := time.ParseInLocation(APITimeFormat, str, time.UTC)
	if err != nil {
		return errors.Wrapf(err, "problem parsing time '%s'", str)
	}
	*t = NewTime(parsed)

	return nil
}

func (t APITime) String() string { return time.Time(t).In(time.UTC).Format(APITimeFormat) }
