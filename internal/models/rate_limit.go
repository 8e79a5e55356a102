package models

import "time"

// RateLimitStatus is a read-only snapshot of the provider's core API quota
type RateLimitStatus struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
	Used      int       `json:"used"`
}
