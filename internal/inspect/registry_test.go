package inspect

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/orizon-lang/coopchan"
)

func TestRegistry_TrackSnapshotForget(t *testing.T) {
	reg := NewRegistry()
	ch := coopchan.NewChannel[int](2)
	ch.TrySend(1)
	id := reg.Track("jobs", ch)

	snaps := reg.Snapshot()
	if len(snaps) != 1 {
		t.Fatalf("snapshots: %d", len(snaps))
	}
	s := snaps[0]
	if s.ID != id || s.Name != "jobs" || s.Capacity != 2 || s.Buffered != 1 || s.Sent != 1 {
		t.Fatalf("snapshot: %+v", s)
	}

	reg.Forget(id)
	reg.Forget(id) // unknown id ignored
	if len(reg.Snapshot()) != 0 {
		t.Fatal("forget did not remove the channel")
	}
}

func TestRegistry_Handler(t *testing.T) {
	reg := NewRegistry()
	reg.Track("a", coopchan.NewChannel[int](1))
	reg.Track("b", coopchan.NewChannel[int](1))

	rr := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/channels?name=a", nil))
	var snaps []ChannelSnapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snaps); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Name != "a" {
		t.Fatalf("filtered snapshots: %+v", snaps)
	}
}
