package domain

import "time"

// Credential is the bearer token obtained from the POS login endpoint.
// Expiry is tracked locally (fixed TTL), not derived from the server.
type Credential struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"` // epoch milliseconds
}

// Valid reports whether the credential has not yet expired.
func (c Credential) Valid(now time.Time) bool {
	return now.UnixMilli() < c.ExpiresAt
}

// NearExpiry reports whether the credential expires within the refresh
// window and should be proactively renewed.
func (c Credential) NearExpiry(now time.Time, window time.Duration) bool {
	return now.Add(window).UnixMilli() >= c.ExpiresAt
}
