package jtl

import (
	"fmt"

	"github.com/perfhub/perfhub/pkg/serrors"
)

var (
	ErrFileTooLarge      = serrors.NewError("RESULT_FILE_TOO_LARGE", "result file exceeds the configured size limit", "")
	ErrUnsupportedFormat = serrors.NewError("RESULT_UNSUPPORTED_FORMAT", "unsupported result file extension", "")
)

// MalformedInputError is a container-level parse failure: the file as a whole
// cannot be read, as opposed to a single bad row. RowsProcessed carries the
// number of rows successfully parsed before the failure.
type MalformedInputError struct {
	Row           int
	RowsProcessed int
	Err           error
}

func (e *MalformedInputError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("malformed result file at row %d after %d parsed rows: %v", e.Row, e.RowsProcessed, e.Err)
	}
	return fmt.Sprintf("malformed result file after %d parsed rows: %v", e.RowsProcessed, e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}
