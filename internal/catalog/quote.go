package catalog

import (
	"fmt"
	"regexp"

	"github.com/lib/pq"
)

// identifierPattern is the conservative shape spec.md §6 asks implementers
// to validate against before splicing a name into SQL text, even though in
// practice every name here was itself read back from a prior introspection
// query against the same server.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateIdentifier rejects table/column names that don't look like plain
// PostgreSQL identifiers before they are ever spliced into generated SQL.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("refusing to use %q as a SQL identifier: must match %s", name, identifierPattern.String())
	}
	return nil
}

// QuoteIdentifier double-quotes an identifier for safe use in generated SQL.
func QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

// QuoteLiteral quotes a string as a SQL literal, used for defaults and
// comparison values that are not identifiers.
func QuoteLiteral(s string) string {
	return pq.QuoteLiteral(s)
}
