package journal

import (
	"encoding/json"
	"testing"
)

func TestWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()

	w, err := Open(dir, "g1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := w.WriteValue(EntryGameCreated, "g1", 1, map[string]int{"total_turns": 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	for turn := 1; turn <= 3; turn++ {
		if err := w.WriteValue(EntryTurnResolved, "g1", turn, map[string]int{"sales": turn * 10}); err != nil {
			t.Fatalf("write turn %d: %v", turn, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := w.Write(Entry{Type: EntryTurnResolved}); err == nil {
		t.Fatalf("write after close should fail")
	}

	entries, err := ReadFile(Path(dir, "g1"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("entries: got %d want 4", len(entries))
	}
	if entries[0].Type != EntryGameCreated || entries[3].Turn != 3 {
		t.Fatalf("entries: %+v", entries)
	}

	var data map[string]int
	if err := json.Unmarshal(entries[2].Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data["sales"] != 20 {
		t.Fatalf("data: %v", data)
	}
}
