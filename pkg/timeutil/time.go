// Package timeutil implements time utilities.
package timeutil

import "time"

// TimeFrame records the start and end of a step.
type TimeFrame struct {
	StartUTC time.Time `json:"start_utc" read-only:"true"`
	// StartUTCRFC3339Nano is the timestamp in RFC3339 format with nano-second scale.
	// e.g. "2006-01-02T15:04:05.999999999Z07:00"
	StartUTCRFC3339Nano string `json:"start_utc_rfc3339_nano" read-only:"true"`
	EndUTC              time.Time `json:"end_utc" read-only:"true"`
	EndUTCRFC3339Nano   string    `json:"end_utc_rfc3339_nano" read-only:"true"`
	// Took is the duration between start and end.
	Took       time.Duration `json:"took" read-only:"true"`
	TookString string        `json:"took_string" read-only:"true"`
}

// NewTimeFrame returns a new TimeFrame.
func NewTimeFrame(start time.Time, end time.Time) TimeFrame {
	took := end.Sub(start)
	return TimeFrame{
		StartUTC:            start.UTC(),
		StartUTCRFC3339Nano: start.UTC().Format(time.RFC3339Nano),
		EndUTC:              end.UTC(),
		EndUTCRFC3339Nano:   end.UTC().Format(time.RFC3339Nano),
		Took:                took,
		TookString:          took.String(),
	}
}

// Since returns the time frame from start until now.
func Since(start time.Time) TimeFrame {
	return NewTimeFrame(start, time.Now())
}

// IsZero returns true if the time frame was never recorded.
func (tf TimeFrame) IsZero() bool {
	return tf.StartUTC.IsZero() && tf.EndUTC.IsZero()
}
