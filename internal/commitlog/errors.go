package commitlog

import "errors"

// Error kinds, following spec.md §7's taxonomy.
var (
	ErrInvalidInput = errors.New("commitlog: invalid input")
	ErrNotFound     = errors.New("commitlog: not found")
	ErrNoDisk       = errors.New("commitlog: no disk tier configured")
)
