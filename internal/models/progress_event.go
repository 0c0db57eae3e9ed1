package models

import "time"

// ProgressEvent is published on a topic ("batch:{id}" or "file:{id}") by the
// Batch Scheduler and Document Pipeline as state advances.
//
// Invariant: Sequence is strictly increasing and contiguous per topic — the
// Notification Fabric assigns it, callers never set it directly.
type ProgressEvent struct {
	Topic     string                 `json:"topic"`
	Phase     string                 `json:"phase"`
	Counters  map[string]int         `json:"counters,omitempty"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
	Sequence  uint64                 `json:"sequence"`
	Timestamp time.Time              `json:"timestamp"`
}
