package redisq

import (
	"bytes"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartarus-sandbox/acheron/pkg/acheron"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		payload  []byte
		attempts int
	}{
		{"json", []byte(`{"test":"data"}`), 0},
		{"with separator", []byte("a|b|c"), 3},
		{"empty payload", []byte{}, 1},
		{"binary", []byte{0x00, 0xff, 0x7c, 0x01}, 12},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			frame := encodeFrame(tc.payload, tc.attempts)

			payload, attempts, err := decodeFrame(frame)
			require.NoError(t, err)
			assert.Equal(t, tc.payload, payload)
			assert.Equal(t, tc.attempts, attempts)
		})
	}
}

func TestFrameLegacyDecode(t *testing.T) {
	id := ulid.Make().String()
	frame := []byte(id + `|{"a":1}`)

	payload, attempts, err := decodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), payload)
	assert.Equal(t, 0, attempts)
}

func TestFrameLegacyDecodeWithSeparatorInPayload(t *testing.T) {
	// A non-numeric middle field means the frame predates attempt counting
	// and everything after the id is payload.
	id := ulid.Make().String()
	frame := []byte(id + "|abc|def")

	payload, attempts, err := decodeFrame(frame)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc|def"), payload)
	assert.Equal(t, 0, attempts)
}

func TestFrameMalformed(t *testing.T) {
	for _, frame := range [][]byte{
		nil,
		[]byte(""),
		[]byte("no-separator-here"),
		[]byte("|payload-without-id"),
	} {
		_, _, err := decodeFrame(frame)
		assert.ErrorIs(t, err, acheron.ErrMalformedFrame, "frame %q", frame)
	}
}

func TestRegenerateFrame(t *testing.T) {
	original := encodeFrame([]byte("payload"), 2)

	fresh, err := regenerateFrame(original, 1)
	require.NoError(t, err)
	assert.NotEqual(t, original, fresh)

	payload, attempts, err := decodeFrame(fresh)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), payload)
	assert.Equal(t, 3, attempts)
}

func TestFrameIDLowerBound(t *testing.T) {
	now := time.Now()
	frame := encodeFrame([]byte("x"), 0)

	past := frameIDLowerBound(now.Add(-time.Minute))
	future := frameIDLowerBound(now.Add(time.Minute))

	assert.Positive(t, bytes.Compare(frame, past), "fresh frame should sort above a past cutoff")
	assert.Negative(t, bytes.Compare(frame, future), "fresh frame should sort below a future cutoff")
}
