package service

import (
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/webitel/im-relay-service/config"
)

// DeliveryObserver receives the outcome of every delivery attempt. Failures are
// never propagated to senders; the observer exists so tests and operators can
// still see them.
type DeliveryObserver interface {
	Delivered(target, msgType string)
	// Dropped means the target had no registered connection.
	Dropped(target, msgType string)
	// Failed means the transport-level send did not complete.
	Failed(target, msgType string)
}

// FailureRecord is one entry of the recent-failure journal.
type FailureRecord struct {
	Target string    `json:"target"`
	Type   string    `json:"type"`
	Kind   string    `json:"kind"`
	At     time.Time `json:"at"`
}

// Interface guard
var _ DeliveryObserver = (*DeliveryJournal)(nil)

// DeliveryJournal is the default observer: monotonic counters plus a bounded
// LRU of the most recent failure per target, surfaced on the stats endpoint.
type DeliveryJournal struct {
	delivered atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
	recent    *lru.Cache[string, FailureRecord]
}

func NewDeliveryJournal(cfg *config.Config) (*DeliveryJournal, error) {
	recent, err := lru.New[string, FailureRecord](cfg.Relay.FailureJournalSize)
	if err != nil {
		return nil, err
	}
	return &DeliveryJournal{recent: recent}, nil
}

func (j *DeliveryJournal) Delivered(target, msgType string) {
	j.delivered.Add(1)
}

func (j *DeliveryJournal) Dropped(target, msgType string) {
	j.dropped.Add(1)
	j.recent.Add(target, FailureRecord{Target: target, Type: msgType, Kind: "target_not_found", At: time.Now()})
}

func (j *DeliveryJournal) Failed(target, msgType string) {
	j.failed.Add(1)
	j.recent.Add(target, FailureRecord{Target: target, Type: msgType, Kind: "send_failed", At: time.Now()})
}

// Counters reports delivered, dropped, and failed totals.
func (j *DeliveryJournal) Counters() (delivered, dropped, failed uint64) {
	return j.delivered.Load(), j.dropped.Load(), j.failed.Load()
}

// RecentFailures lists the journal from least to most recently touched target.
func (j *DeliveryJournal) RecentFailures() []FailureRecord {
	keys := j.recent.Keys()
	records := make([]FailureRecord, 0, len(keys))
	for _, key := range keys {
		if rec, ok := j.recent.Get(key); ok {
			records = append(records, rec)
		}
	}
	return records
}
