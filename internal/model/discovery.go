package model

import "time"

// DiscoveryResult is the optional, per-connector catalog snapshot a driver
// may produce (e.g. "list tables"). Fingerprint is "sha256:<hex>" of the
// record with the fingerprint field itself elided, and must be
// byte-identical across two consecutive discoveries against an unchanged
// connection.
type DiscoveryResult struct {
	DiscoveredAt time.Time `json:"discovered_at"`
	Resources    []string  `json:"resources"`
	Fingerprint  string    `json:"fingerprint"`
}
