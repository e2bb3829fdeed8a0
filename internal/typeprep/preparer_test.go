package typeprep

import (
	"log/slog"
	"testing"
)

func TestPrepareJSONPassesValidJSONThrough(t *testing.T) {
	p := New(slog.Default())
	got := p.prepareJSON(`{"k":[1,2]}`)
	if got != `{"k":[1,2]}` {
		t.Fatalf("got %v, want passthrough of valid JSON text", got)
	}
}

func TestPrepareJSONWrapsNonJSONText(t *testing.T) {
	p := New(slog.Default())
	got := p.prepareJSON("not json")
	if got != `"not json"` {
		t.Fatalf("got %q, want a wrapped JSON string literal", got)
	}
}

func TestPrepareJSONSerializesStructuredValue(t *testing.T) {
	p := New(slog.Default())
	got := p.prepareJSON(map[string]any{"k": []any{1.0, 2.0}})
	if got != `{"k":[1,2]}` {
		t.Fatalf("got %v, want serialized object", got)
	}
}

func TestPrepareArrayFormatsLiteral(t *testing.T) {
	p := New(slog.Default())
	got := p.prepareArray([]any{"a", `b"c`, nil})
	want := `{"a","b\"c",NULL}`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPrepareArrayPassesThroughExistingLiteral(t *testing.T) {
	p := New(slog.Default())
	got := p.prepareArray("{1,2,3}")
	if got != "{1,2,3}" {
		t.Fatalf("got %v, want unchanged literal", got)
	}
}

func TestPrepareScalarSerializesNestedValue(t *testing.T) {
	p := New(slog.Default())
	got := p.prepareScalar(map[string]any{"x": 1.0})
	if got != `{"x":1}` {
		t.Fatalf("got %v, want serialized JSON", got)
	}
}

func TestPrepareScalarPassesThroughPlainValues(t *testing.T) {
	p := New(slog.Default())
	if got := p.prepareScalar(42); got != 42 {
		t.Fatalf("got %v, want 42 unchanged", got)
	}
	if got := p.prepareScalar(nil); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestBuildScheduleDispatchesByColumnKind(t *testing.T) {
	p := New(slog.Default())
	columns := []string{"id", "data", "tags", "name"}
	jsonCols := map[string]bool{"data": true}
	arrayCols := map[string]bool{"tags": true}

	schedule := p.BuildSchedule(columns, jsonCols, arrayCols)
	row := []any{1, `{"a":1}`, []any{"x", "y"}, "plain"}
	out := schedule.Prepare(row)

	if out[0] != 1 {
		t.Errorf("id: got %v, want passthrough", out[0])
	}
	if out[1] != `{"a":1}` {
		t.Errorf("data: got %v, want passthrough valid JSON", out[1])
	}
	if out[2] != `{"x","y"}` {
		t.Errorf("tags: got %v, want array literal", out[2])
	}
	if out[3] != "plain" {
		t.Errorf("name: got %v, want passthrough", out[3])
	}
}
