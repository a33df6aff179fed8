package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestJoke_TableName(t *testing.T) {
	if got := (Joke{}).TableName(); got != "jokes" {
		t.Fatalf("TableName = %q", got)
	}
}

func TestJoke_JSONShape(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	j := Joke{
		ID:        "11111111-2222-3333-4444-555555555555",
		Text:      "a joke",
		CreatedAt: created,
	}

	b, err := json.Marshal(j)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"id", "text", "source_id", "created_at", "updated_at"} {
		if _, ok := m[k]; !ok {
			t.Errorf("missing key %q in %s", k, b)
		}
	}
	// Optional fields render as explicit nulls until set.
	if m["source_id"] != nil {
		t.Errorf("source_id should be null, got %v", m["source_id"])
	}
	if m["updated_at"] != nil {
		t.Errorf("updated_at should be null, got %v", m["updated_at"])
	}
}
