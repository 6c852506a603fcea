package store

import (
	"encoding/json"
	"testing"
)

func testConfig() Config {
	return Config{DBName: "fbascp_test"}
}

func TestArchiveAndGet(t *testing.T) {
	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.DropTestData(); err != nil {
		t.Fatalf("DropTestData: %v", err)
	}

	values := []int{100, 200}
	if err := s.Archive(7, "node1", values); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	raw, ok, err := s.Get(7)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected archived slot 7 to be found")
	}
	var got []int
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshaling archived values: %v", err)
	}
	if len(got) != 2 || got[0] != 100 || got[1] != 200 {
		t.Fatalf("unexpected archived values: %v", got)
	}
}

func TestGetNonexistentSlot(t *testing.T) {
	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.DropTestData(); err != nil {
		t.Fatalf("DropTestData: %v", err)
	}

	_, ok, err := s.Get(999999)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected no archived slot 999999")
	}
}

func TestArchiveKeepsFirstWriterPerSlot(t *testing.T) {
	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.DropTestData(); err != nil {
		t.Fatalf("DropTestData: %v", err)
	}

	if err := s.Archive(8, "node1", []int{1}); err != nil {
		t.Fatalf("Archive (first): %v", err)
	}
	if err := s.Archive(8, "node2", []int{2}); err != nil {
		t.Fatalf("Archive (second): %v", err)
	}

	raw, ok, err := s.Get(8)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected slot 8 to be archived")
	}
	var got []int
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("unmarshaling archived values: %v", err)
	}
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected the first archive to win on conflict, got %v", got)
	}
}
