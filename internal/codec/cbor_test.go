package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanverite/intstack/internal/core"
)

func TestMarshalDeterministic(t *testing.T) {
	a, err := Marshal(map[string]any{"size": 3, "action": "set-size"})
	require.NoError(t, err)
	b, err := Marshal(map[string]any{"action": "set-size", "size": 3})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStreamedValues(t *testing.T) {
	type msg struct {
		Action string `cbor:"action"`
		Value  int32  `cbor:"value,omitempty"`
	}

	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(msg{Action: "push", Value: -7}))
	require.NoError(t, enc.Encode(msg{Action: "pop"}))

	dec := NewDecoder(&buf)
	var first, second msg
	require.NoError(t, dec.Decode(&first))
	require.NoError(t, dec.Decode(&second))
	assert.Equal(t, msg{Action: "push", Value: -7}, first)
	assert.Equal(t, msg{Action: "pop"}, second)
}

func TestDecodeAnyUsesStringKeys(t *testing.T) {
	data, err := Marshal(map[string]any{"action": "stat"})
	require.NoError(t, err)

	var out any
	require.NoError(t, Unmarshal(data, &out))
	m, ok := out.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "stat", m["action"])
}

func TestTextMarshalerEncodesAsString(t *testing.T) {
	type attach struct {
		Device core.DeviceID `cbor:"device"`
	}

	data, err := Marshal(attach{Device: core.DeviceID{Vendor: 0x13fe, Product: 0x4300}})
	require.NoError(t, err)

	var generic map[string]any
	require.NoError(t, Unmarshal(data, &generic))
	assert.Equal(t, "13fe:4300", generic["device"])

	var back attach
	require.NoError(t, Unmarshal(data, &back))
	assert.Equal(t, core.DefaultDevice, back.Device)
}
