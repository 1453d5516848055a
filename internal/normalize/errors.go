package normalize

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrInputNotFound is returned when the crawl log to normalize does not exist.
// It matches fs.ErrNotExist as well.
var ErrInputNotFound = fmt.Errorf("input file not found: %w", fs.ErrNotExist)

// SchemaError reports an input line that is not a flat JSON object of strings.
type SchemaError struct {
	Path string
	Line int
	Err  error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: line %d: %v", e.Path, e.Line, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// IsSchemaError reports whether err carries a *SchemaError.
func IsSchemaError(err error) bool {
	var schemaErr *SchemaError
	return errors.As(err, &schemaErr)
}
