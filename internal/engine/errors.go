package engine

import (
	"errors"
	"fmt"
)

// ErrNoDataset is returned when an operation is executed without a table.
var ErrNoDataset = errors.New("no dataset loaded")

// UnknownColumnError reports an operation argument naming a column that
// is not in the table.
type UnknownColumnError struct {
	Column string
}

func (e *UnknownColumnError) Error() string {
	return fmt.Sprintf("column '%s' not found in dataset", e.Column)
}

// NonNumericError reports an aggregation or pivot value column that is
// not numeric.
type NonNumericError struct {
	Column string
}

func (e *NonNumericError) Error() string {
	return fmt.Sprintf("column '%s' is not numeric and cannot be aggregated", e.Column)
}
