package metrics

import (
	"os"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "ansuz-metrics-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndSummarize(t *testing.T) {
	db := testDB(t)
	session := NewSessionID()

	ops := []Operation{
		{SessionID: session, Tool: "create_note", Outcome: "ok", Duration: 10 * time.Millisecond},
		{SessionID: session, Tool: "create_note", Outcome: "review_required", Duration: 2 * time.Millisecond},
		{SessionID: session, Tool: "search_by_tags", Outcome: "ok", Duration: 6 * time.Millisecond},
		{SessionID: "other-session", Tool: "create_note", Outcome: "ok"},
	}
	for _, op := range ops {
		if err := db.Record(op); err != nil {
			t.Fatal(err)
		}
	}

	s, err := db.SessionSummary(session)
	if err != nil {
		t.Fatal(err)
	}
	if s.Total != 3 {
		t.Errorf("Total = %d, want 3", s.Total)
	}
	if s.ByOutcome["ok"] != 2 || s.ByOutcome["review_required"] != 1 {
		t.Errorf("ByOutcome = %v", s.ByOutcome)
	}
	if s.ByTool["create_note"] != 2 {
		t.Errorf("ByTool = %v", s.ByTool)
	}
	if s.AvgDurationMs != 6 {
		t.Errorf("AvgDurationMs = %g, want 6", s.AvgDurationMs)
	}
}

func TestSessionSummary_Empty(t *testing.T) {
	db := testDB(t)
	s, err := db.SessionSummary("nope")
	if err != nil {
		t.Fatal(err)
	}
	if s.Total != 0 || len(s.ByOutcome) != 0 {
		t.Errorf("summary = %+v, want empty", s)
	}
}

func TestToolCounts(t *testing.T) {
	db := testDB(t)
	for i := 0; i < 3; i++ {
		if err := db.Record(Operation{SessionID: "s", Tool: "get_knowledge_status", Outcome: "ok"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.Record(Operation{SessionID: "s", Tool: "read_note", Outcome: "not_found"}); err != nil {
		t.Fatal(err)
	}

	counts, err := db.ToolCounts()
	if err != nil {
		t.Fatal(err)
	}
	if counts["get_knowledge_status"] != 3 || counts["read_note"] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestNewSessionID_Unique(t *testing.T) {
	if NewSessionID() == NewSessionID() {
		t.Error("session ids collided")
	}
}
