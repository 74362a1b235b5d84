package models

// DailyMessageCounter is persisted per client; LastResetDate uses the
// "Mon Jan 02 2006" calendar-date form.
type DailyMessageCounter struct {
	Count         int    `json:"count"`
	LastResetDate string `json:"lastResetDate"`
}
