package models

import "time"

// FetchRecord describes one upstream API call for auditing and archiving.
type FetchRecord struct {
	Horizon      Horizon
	Endpoint     string
	StartedAt    time.Time
	FinishedAt   time.Time
	HTTPStatus   int
	ResponseSize int
	RecordCount  int
	Error        string
	QualityFlags []string
	Payload      []byte
}

// Success reports whether the call produced a normalized result.
func (r FetchRecord) Success() bool {
	return r.Error == ""
}
