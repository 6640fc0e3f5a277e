package events

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
)

func TestPublish_WritesJSONRecord(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, nil)
	mp.ExpectInputWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev SnapshotEvent
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Endpoint != "style" || ev.Status != 200 || ev.Outcome != "ok" || ev.Fingerprint != "00000000deadbeef" {
			return fmt.Errorf("unexpected event %+v", ev)
		}
		if ev.TS.IsZero() {
			return fmt.Errorf("timestamp not filled in")
		}
		return nil
	})

	p := NewPublisherWithProducer(mp, "snapshot-events", 4, nil)
	p.Publish(SnapshotEvent{
		Endpoint:    "style",
		Status:      200,
		Outcome:     "ok",
		DurationMS:  12,
		Fingerprint: "00000000deadbeef",
		Overlays:    2,
	})
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestPublish_AfterCloseIsNoop(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, nil)
	p := NewPublisherWithProducer(mp, "snapshot-events", 1, nil)
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	p.Publish(SnapshotEvent{Endpoint: "tileset", TS: time.Now()})
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestSnapshotEvent_JSONShape(t *testing.T) {
	ev := SnapshotEvent{Endpoint: "tileset", Status: 429, Outcome: "rate_limited", DurationMS: 5, Fingerprint: "f", Overlays: 1, TS: time.Unix(0, 0).UTC()}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"endpoint":"tileset","status":429,"outcome":"rate_limited","duration_ms":5,"fingerprint":"f","overlays":1,"ts":"1970-01-01T00:00:00Z"}`
	if string(b) != want {
		t.Fatalf("json got %s", b)
	}
}
