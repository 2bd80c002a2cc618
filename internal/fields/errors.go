package fields

import "errors"

var (
	// ErrBadTimestamp marks an event whose timestamp candidates were all
	// missing or unparseable. Such events are skipped, not marked processed.
	ErrBadTimestamp = errors.New("unparseable timestamp")

	// ErrMissingField marks an event missing a field the rule requires.
	ErrMissingField = errors.New("missing required field")
)
