package schema

import (
	"testing"

	"github.com/basinlabs/pgbridge/internal/catalog"
)

func intp(n int) *int { return &n }

func TestMapType(t *testing.T) {
	cases := []struct {
		name string
		col  catalog.ColumnDescriptor
		want string
	}{
		{"varchar default length", catalog.ColumnDescriptor{DataType: "character varying"}, "varchar(255)"},
		{"varchar explicit length", catalog.ColumnDescriptor{DataType: "character varying", CharacterMaximumLength: intp(32)}, "varchar(32)"},
		{"numeric default precision", catalog.ColumnDescriptor{DataType: "numeric"}, "numeric(10,2)"},
		{"numeric explicit", catalog.ColumnDescriptor{DataType: "numeric", NumericPrecision: intp(12), NumericScale: intp(4)}, "numeric(12,4)"},
		{"identity integer", catalog.ColumnDescriptor{DataType: "integer"}, "integer"},
		{"timestamptz", catalog.ColumnDescriptor{DataType: "timestamp with time zone"}, "timestamptz"},
		{"timestamp", catalog.ColumnDescriptor{DataType: "timestamp without time zone"}, "timestamp"},
		{"array", catalog.ColumnDescriptor{DataType: "ARRAY", UDTName: "_text"}, "text[]"},
		{"unknown falls back to udt", catalog.ColumnDescriptor{DataType: "user-defined", UDTName: "hstore"}, "hstore"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := mapType(c.col); got != c.want {
				t.Errorf("mapType(%+v) = %q, want %q", c.col, got, c.want)
			}
		})
	}
}

func TestNullFillDefault(t *testing.T) {
	cases := []struct {
		dataType  string
		wantValue string
		wantOK    bool
	}{
		{"integer", "0", true},
		{"boolean", "false", true},
		{"text", "''", true},
		{"jsonb", "'{}'", true},
		{"timestamp with time zone", "NOW()", true},
		{"date", "CURRENT_DATE", true},
		{"uuid", "gen_random_uuid()", true},
		{"bytea", "", false},
	}

	for _, c := range cases {
		got, ok := nullFillDefault(c.dataType)
		if ok != c.wantOK || got != c.wantValue {
			t.Errorf("nullFillDefault(%q) = (%q, %v), want (%q, %v)", c.dataType, got, ok, c.wantValue, c.wantOK)
		}
	}
}

func TestIsNextvalDefault(t *testing.T) {
	seqDefault := "nextval('public.t_id_seq'::regclass)"
	if !isNextvalDefault(&seqDefault) {
		t.Errorf("expected nextval default to be recognized")
	}
	plain := "0"
	if isNextvalDefault(&plain) {
		t.Errorf("expected plain default to not be recognized as nextval")
	}
	if isNextvalDefault(nil) {
		t.Errorf("expected nil default to not be recognized as nextval")
	}
}

func TestExtractSequenceName(t *testing.T) {
	name, ok := extractSequenceName("nextval('public.t_id_seq'::regclass)")
	if !ok || name != "t_id_seq" {
		t.Errorf("got (%q, %v), want (\"t_id_seq\", true)", name, ok)
	}

	name, ok = extractSequenceName(`nextval('"t_id_seq"'::regclass)`)
	if !ok || name != "t_id_seq" {
		t.Errorf("got (%q, %v), want (\"t_id_seq\", true) for quoted form", name, ok)
	}

	if _, ok := extractSequenceName("no quotes here"); ok {
		t.Errorf("expected extraction to fail without quotes")
	}
}
