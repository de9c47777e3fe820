package config

import "time"

// SyncPatch is a partial runtime update for [Sync]. Nil fields keep the
// current value, so a caller can flip a single knob without restating the
// rest. Pointer fields are required here because mergo-style merging cannot
// distinguish "set to false" from "not provided".
type SyncPatch struct {
	Enabled         *bool     `json:"enabled,omitempty"`
	Endpoint        *string   `json:"endpoint,omitempty"`
	Interval        *Duration `json:"interval,omitempty"`
	ChangeThreshold *int      `json:"change_threshold,omitempty"`
	RequireAuth     *bool     `json:"require_auth,omitempty"`
	EncryptData     *bool     `json:"encrypt_data,omitempty"`
	IncludeTimings  *bool     `json:"include_timings,omitempty"`
	IncludeHeaders  *bool     `json:"include_headers,omitempty"`
	OverlapPolicy   *string   `json:"overlap_policy,omitempty"`
}

// Apply returns a copy of cur with the non-nil patch fields overlaid. The
// result is not validated; callers run [Sync.Validate] before adopting it.
func (p SyncPatch) Apply(cur Sync) Sync {
	next := cur

	if p.Enabled != nil {
		next.Enabled = *p.Enabled
	}
	if p.Endpoint != nil {
		next.Endpoint = *p.Endpoint
	}
	if p.Interval != nil {
		next.Interval = time.Duration(*p.Interval)
	}
	if p.ChangeThreshold != nil {
		next.ChangeThreshold = *p.ChangeThreshold
	}
	if p.RequireAuth != nil {
		next.RequireAuth = *p.RequireAuth
	}
	if p.EncryptData != nil {
		next.EncryptData = *p.EncryptData
	}
	if p.IncludeTimings != nil {
		next.IncludeTimings = *p.IncludeTimings
	}
	if p.IncludeHeaders != nil {
		next.IncludeHeaders = *p.IncludeHeaders
	}
	if p.OverlapPolicy != nil {
		next.OverlapPolicy = *p.OverlapPolicy
	}

	return next
}
