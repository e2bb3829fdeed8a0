package replicate

import "testing"

func TestBuildInsert(t *testing.T) {
	got := buildInsert("orders", []string{"id", "total"})
	want := `INSERT INTO "orders" ("id", "total") VALUES ($1, $2)`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildBatchInsert(t *testing.T) {
	got := buildBatchInsert("orders", []string{"id", "total"}, 2)
	want := `INSERT INTO "orders" ("id", "total") VALUES ($1, $2), ($3, $4)`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildUpsertSingleColumnPK(t *testing.T) {
	got := buildUpsert("u", []string{"id", "v"}, []string{"id"})
	want := `INSERT INTO "u" ("id", "v") VALUES ($1, $2) ON CONFLICT ("id") DO UPDATE SET "v" = EXCLUDED."v"`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildUpsertCompositePK(t *testing.T) {
	got := buildUpsert("t", []string{"a", "b", "c"}, []string{"a", "b"})
	want := `INSERT INTO "t" ("a", "b", "c") VALUES ($1, $2, $3) ON CONFLICT ("a", "b") DO UPDATE SET "c" = EXCLUDED."c"`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBuildUpsertAllColumnsArePK(t *testing.T) {
	got := buildUpsert("t", []string{"a", "b"}, []string{"a", "b"})
	want := `INSERT INTO "t" ("a", "b") VALUES ($1, $2) ON CONFLICT ("a", "b") DO NOTHING`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTruncatedPayloadCapsAt200Bytes(t *testing.T) {
	long := make([]any, 0, 100)
	for i := 0; i < 100; i++ {
		long = append(long, "xxxxxxxxxx")
	}
	got := truncatedPayload(long)
	if len(got) != 200 {
		t.Errorf("len(got) = %d, want 200", len(got))
	}
}

func TestTruncatedPayloadShortValuePassesThrough(t *testing.T) {
	got := truncatedPayload([]any{1, "a"})
	want := "[1 a]"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestIsDuplicateKeyError(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{`pq: duplicate key value violates unique constraint "t_pkey"`, true},
		{"pq: a unique constraint was violated", true},
		{"pq: connection refused", false},
	}
	for _, c := range cases {
		if got := isDuplicateKeyError(fakeErr(c.msg)); got != c.want {
			t.Errorf("isDuplicateKeyError(%q) = %v, want %v", c.msg, got, c.want)
		}
	}
}

type fakeErr string

func (f fakeErr) Error() string { return string(f) }
