package model

import (
	"fmt"
	"strconv"
	"time"
)

// Scene metadata arrives either from Earth Engine exports (epoch milliseconds)
// or from the SAFE product XML (several ISO-like layouts). Parsing is lenient.

// AncillaryTimeLayout is the timestamp layout the ancillary service expects
const AncillaryTimeLayout = "2006-01-02 15:04:05"

var sentinelTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999Z",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"20060102T150405",
	AncillaryTimeLayout,
}

// ParseSentinelTime parses a timestamp in any of the known metadata formats
func ParseSentinelTime(sentinelTime string) (time.Time, error) {
	for _, layout := range sentinelTimeLayouts {
		if output, err := time.Parse(layout, sentinelTime); err == nil {
			return output.UTC(), nil
		}
	}
	if millis, err := strconv.ParseInt(sentinelTime, 10, 64); err == nil {
		return TimeFromEpochMillis(millis), nil
	}
	return time.Time{}, fmt.Errorf("Date could not be parsed by any expected time format: `%s`", sentinelTime)
}

// TimeFromEpochMillis converts an epoch millisecond timestamp ("system:time_start") to UTC
func TimeFromEpochMillis(millis int64) time.Time {
	return time.Unix(millis/1000, (millis%1000)*int64(time.Millisecond)).UTC()
}
