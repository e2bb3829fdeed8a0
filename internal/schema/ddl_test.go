package schema

import "testing"

func TestValidateStatementAcceptsWellFormedDDL(t *testing.T) {
	stmt := `CREATE TABLE "orders" (
  "id" integer NOT NULL,
  "total" numeric(10,2)
)`
	if err := validateStatement(stmt); err != nil {
		t.Fatalf("validateStatement() = %v, want nil", err)
	}
}

func TestValidateStatementRejectsMalformedDDL(t *testing.T) {
	if err := validateStatement("CREATE TABLE ((( not sql"); err == nil {
		t.Fatalf("validateStatement() = nil, want error for malformed statement")
	}
}
