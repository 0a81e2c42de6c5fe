package loadtest

import (
	"errors"
	"time"

	"github.com/tidwall/gjson"
)

// Sampler outcomes. A received message either yields a latency sample or
// exactly one of these sentinel errors; there is no partial result.
var (
	// ErrMalformedMessage indicates the payload was not valid JSON.
	ErrMalformedMessage = errors.New("malformed message payload")

	// ErrNoTimestamp indicates the payload parsed but carried no numeric
	// "timestamp" field to measure latency against.
	ErrNoTimestamp = errors.New("message has no numeric timestamp")
)

// LatencySample is a single observed latency in milliseconds: receipt time
// minus the server-embedded timestamp. Clock skew between client and server
// can make it negative.
type LatencySample float64

// Sample extracts a latency sample from a received message.
//
// The message must be a JSON object with a numeric "timestamp" field holding
// milliseconds since the epoch (server clock). All other fields are ignored.
//
// Sample is stateless and safe to call concurrently from any number of
// sessions.
func Sample(payload []byte, now time.Time) (LatencySample, error) {
	if !gjson.ValidBytes(payload) {
		return 0, ErrMalformedMessage
	}

	ts := gjson.GetBytes(payload, "timestamp")
	if ts.Type != gjson.Number {
		return 0, ErrNoTimestamp
	}

	return LatencySample(float64(now.UnixMilli()) - ts.Float()), nil
}
