package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIString(t *testing.T) {
	t.Run("MarshalEmpty", func(t *testing.T) {
		data, err := json.Marshal(ToAPIString(""))
		require.NoError(t, err)
		assert.Equal(t, `""`, string(data))
	})
	t.Run("MarshalNonEmpty", func(t *testing.T) {
		data, err := json.Marshal(ToAPIString("REL_13_STABLE"))
		require.NoError(t, err)
		assert.Equal(t, `"REL_13_STABLE"`, string(data))
	})
	t.Run("Unmarshal", func(t *testing.T) {
		var res APIString
		require.NoError(t, json.Unmarshal([]byte(`"Plant A"`), &res))
		assert.Equal(t, "Plant A", FromAPIString(res))
	})
	t.Run("NilIsEmpty", func(t *testing.T) {
		assert.Equal(t, "", FromAPIString(nil))
	})
}
