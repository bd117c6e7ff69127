package query

import "errors"

var (
	// ErrMalformedBody signals that explicit groups exist but none can take a merge.
	ErrMalformedBody = errors.New("malformed query body")
	// ErrUnknownCondition signals an unrecognised condition or group name.
	ErrUnknownCondition = errors.New("unknown condition")
	// ErrInvalidClause signals a clause that cannot be built from its arguments.
	ErrInvalidClause = errors.New("invalid clause")
)
