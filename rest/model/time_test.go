package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPITime(t *testing.T) {
	asString := "\"2024-02-01T19:53:46.404Z\""
	asTime := time.Date(2024, time.February, 1, 19, 53, 46, 404000000, time.UTC)

	for name, test := range map[string]func(t *testing.T){
		"MarshalUTC": func(t *testing.T) {
			res, err := json.Marshal(NewTime(asTime))
			require.NoError(t, err)
			assert.Equal(t, asString, string(res))
		},
		"MarshalConvertsZone": func(t *testing.T) {
			res, err := json.Marshal(NewTime(asTime.In(time.FixedZone("farm", 5*3600))))
			require.NoError(t, err)
			assert.Equal(t, asString, string(res))
		},
		"MarshalZeroIsNull": func(t *testing.T) {
			res, err := json.Marshal(APITime{})
			require.NoError(t, err)
			assert.Equal(t, "null", string(res))
		},
		"Unmarshal": func(t *testing.T) {
			res := APITime{}
			require.NoError(t, json.Unmarshal([]byte(asString), &res))
			assert.True(t, asTime.Equal(time.Time(res)))
		},
		"UnmarshalNull": func(t *testing.T) {
			res := NewTime(asTime)
			require.NoError(t, json.Unmarshal([]byte("null"), &res))
			assert.True(t, time.Time(res).IsZero())
		},
		"UnmarshalInvalid": func(t *testing.T) {
			res := APITime{}
			assert.Error(t, json.Unmarshal([]byte("\"yesterday\""), &res))
			assert.Error(t, json.Unmarshal([]byte("42"), &res))
		},
	} {
		t.Run(name, test)
	}
}
