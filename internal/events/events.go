// Package events fans crawl progress out to SSE subscribers.
package events

import (
	"encoding/json"
	"time"
)

const (
	TypeCrawlStarted  = "crawl_started"
	TypeBatchStored   = "batch_stored"
	TypeCrawlFinished = "crawl_finished"
	TypeCrawlFailed   = "crawl_failed"
	TypePing          = "ping"
)

type Event struct {
	Type    string          `json:"type"`
	Version int             `json:"v"`
	At      time.Time       `json:"at"`
	RunID   string          `json:"run_id,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// MakeEvent renders one event as the JSON text sent on the wire.
func MakeEvent(runID, typ string, v int, data any) string {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	e := Event{
		Type:    typ,
		Version: v,
		At:      time.Now().UTC(),
		RunID:   runID,
		Data:    raw,
	}
	b, _ := json.Marshal(e)
	return string(b)
}

type BatchStored struct {
	Keyword  string `json:"keyword"`
	Page     int    `json:"page"`
	Found    int    `json:"found"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
}

// Publisher is what crawl sessions report progress to.
type Publisher interface {
	Publish(evt string)
}
