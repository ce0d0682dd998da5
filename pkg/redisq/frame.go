package redisq

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/tartarus-sandbox/acheron/pkg/acheron"
)

// A frame is the unit stored in the Redis lists: id|attempts|payload.
// The id is a ULID, so its lexical order follows its embedded millisecond
// timestamp, and its Crockford base32 alphabet can never collide with the
// separator. Ids are regenerated whenever a frame is rewritten to a list,
// which keeps the embedded time meaning "eligible for processing since".
//
// Frames written before attempt accounting existed have only id|payload;
// those decode with attempts = 0.

const frameSeparator = '|'

func encodeFrame(payload []byte, attempts int) []byte {
	id := ulid.Make().String()
	counter := strconv.Itoa(attempts)

	frame := make([]byte, 0, len(id)+len(counter)+len(payload)+2)
	frame = append(frame, id...)
	frame = append(frame, frameSeparator)
	frame = append(frame, counter...)
	frame = append(frame, frameSeparator)
	frame = append(frame, payload...)
	return frame
}

func decodeFrame(frame []byte) (payload []byte, attempts int, err error) {
	sep := bytes.IndexByte(frame, frameSeparator)
	if sep <= 0 {
		return nil, 0, fmt.Errorf("%w: missing id separator", acheron.ErrMalformedFrame)
	}

	rest := frame[sep+1:]
	next := bytes.IndexByte(rest, frameSeparator)
	if next <= 0 || !allDigits(rest[:next]) {
		// Legacy two-field frame: everything after the id is payload.
		return rest, 0, nil
	}

	attempts, err = strconv.Atoi(string(rest[:next]))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: attempt counter %q", acheron.ErrMalformedFrame, rest[:next])
	}
	return rest[next+1:], attempts, nil
}

// regenerateFrame re-encodes a frame with a fresh id, keeping the payload
// and applying bump to the attempt counter.
func regenerateFrame(frame []byte, bump int) ([]byte, error) {
	payload, attempts, err := decodeFrame(frame)
	if err != nil {
		return nil, err
	}
	return encodeFrame(payload, attempts+bump), nil
}

// frameIDLowerBound returns the smallest frame id for instant t. Any frame
// whose id was generated before t sorts strictly below it.
func frameIDLowerBound(t time.Time) []byte {
	var id ulid.ULID
	// SetTime only fails for timestamps beyond the ULID epoch range.
	if err := id.SetTime(uint64(t.UnixMilli())); err != nil {
		panic(err)
	}
	return []byte(id.String())
}

func allDigits(b []byte) bool {
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(b) > 0
}
