package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_MarshalJSON(t *testing.T) {
	d := NewDate(1968, time.April, 12)

	data, err := json.Marshal(d)
	require.NoError(t, err)

	assert.Equal(t, `"1968-04-12"`, string(data))
}

func TestDate_UnmarshalJSON(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"1968-04-12"`), &d))

	assert.Equal(t, 1968, d.Year())
	assert.Equal(t, time.April, d.Month())
	assert.Equal(t, 12, d.Day())
}

func TestDate_UnmarshalJSON_ToleratesTimeComponent(t *testing.T) {
	// Some clients send full timestamps for date fields.
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"1968-04-12T00:00:00.000Z"`), &d))

	assert.Equal(t, "1968-04-12", d.Format("2006-01-02"))
}

func TestDate_UnmarshalJSON_EmptyLeavesZero(t *testing.T) {
	var d Date
	require.NoError(t, json.Unmarshal([]byte(`""`), &d))

	assert.True(t, d.IsZero())
}

func TestDate_UnmarshalJSON_RejectsGarbage(t *testing.T) {
	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"12/04/1968"`), &d))
}

func TestDate_Scan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(1968, time.April, 12, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 1968, d.Year())

	var fromString Date
	require.NoError(t, fromString.Scan("1968-04-12"))
	assert.Equal(t, time.April, fromString.Month())

	var bad Date
	assert.Error(t, bad.Scan(42))
}
