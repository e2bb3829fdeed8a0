package schema

import (
	"fmt"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// validateStatement parses a generated (or replayed) DDL statement before it
// is ever sent to the target connection, so a malformed statement surfaces
// as a SchemaChanges error rather than a raw driver syntax error mid-replay.
func validateStatement(stmt string) error {
	if _, err := pg_query.Parse(stmt); err != nil {
		return fmt.Errorf("generated DDL did not parse: %w\nstatement: %s", err, stmt)
	}
	return nil
}
