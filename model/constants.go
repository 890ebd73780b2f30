package model

// ResultTimeFormat is the format acquisition and processing times are written in
const ResultTimeFormat = "2006-01-02T15:04:05.999999999Z" // time.RFC3339Nano, always UTC

// Correction statuses recorded for each scene
const (
	StatusCorrected = "corrected"
	StatusFailed    = "failed"
)
