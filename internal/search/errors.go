package search

import "errors"

// ErrEmptyQuery is returned when a query contains no searchable terms.
var ErrEmptyQuery = errors.New("query contains no searchable terms")
