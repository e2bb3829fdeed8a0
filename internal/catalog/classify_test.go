package catalog

import "testing"

func TestClassifyColumns(t *testing.T) {
	cols := []ColumnDescriptor{
		{Name: "id", DataType: "integer", UDTName: "int4"},
		{Name: "data", DataType: "jsonb", UDTName: "jsonb"},
		{Name: "tags", DataType: "ARRAY", UDTName: "_text"},
		{Name: "label", DataType: "text", UDTName: "text"},
		{Name: "meta", DataType: "json", UDTName: "json"},
	}

	jsonCols, arrayCols := ClassifyColumns(cols)

	if !jsonCols["data"] || !jsonCols["meta"] {
		t.Errorf("expected data and meta classified as JSON, got %v", jsonCols)
	}
	if jsonCols["id"] || jsonCols["tags"] || jsonCols["label"] {
		t.Errorf("unexpected JSON classification: %v", jsonCols)
	}
	if !arrayCols["tags"] {
		t.Errorf("expected tags classified as ARRAY, got %v", arrayCols)
	}
	if arrayCols["id"] || arrayCols["data"] || arrayCols["label"] {
		t.Errorf("unexpected ARRAY classification: %v", arrayCols)
	}
}
