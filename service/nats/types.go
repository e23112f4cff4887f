package nats

import (
	"time"

	"github.com/brojonat/dustwatch/service/inspector"
	"github.com/brojonat/dustwatch/service/outcome"
)

// ReportEvent announces a classified transaction.
// It is published to the subject "dust.{signer}" in JetStream.
type ReportEvent struct {
	Signature string     `json:"signature"`
	Signer    string     `json:"signer"`
	Slot      uint64     `json:"slot"`
	BlockTime *time.Time `json:"block_time,omitempty"`
	Failed    bool       `json:"failed"`

	SpamCount      int `json:"spam_count"`
	LowValueCount  int `json:"low_value_count"`
	SuspiciousLogs int `json:"suspicious_logs"`

	// Spammed lists only the flagged movements to keep events small.
	Spammed outcome.Spammed `json:"spammed"`

	PublishedAt time.Time `json:"published_at"`
}

// FromReport converts an inspection report into an event for publishing.
func FromReport(r *inspector.Report) *ReportEvent {
	event := &ReportEvent{
		Signature:      r.Signature,
		Signer:         r.Signer,
		Slot:           r.Slot,
		BlockTime:      r.BlockTime,
		Failed:         r.Failed,
		SpamCount:      r.SpamCount,
		LowValueCount:  r.LowValueCount,
		SuspiciousLogs: r.SuspiciousLogs,
		PublishedAt:    time.Now().UTC(),
	}
	if r.Outcome != nil {
		event.Spammed = r.Outcome.Spammed()
	}
	return event
}

// Subject returns the subject events for signer are published on. An empty
// signer yields the wildcard covering every signer.
func Subject(signer string) string {
	if signer == "" {
		return StreamSubjects
	}
	return subjectPrefix + signer
}
