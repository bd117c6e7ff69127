package query

import (
	"fmt"
	"strings"
)

// Condition is the boolean condition a clause is merged under.
type Condition int

const (
	// Default reuses the last boolean kind, falling back to Must.
	Default Condition = iota
	And
	Or
	Not
	ExplicitAnd
	ExplicitOr
	ExplicitNot
)

// ParseCondition maps a condition name to a Condition.
// The empty string yields Default. Matching is case-insensitive.
func ParseCondition(s string) (Condition, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return Default, nil
	case "and", "must":
		return And, nil
	case "or", "should":
		return Or, nil
	case "not", "not_", "must_not":
		return Not, nil
	case "explicit_and":
		return ExplicitAnd, nil
	case "explicit_or":
		return ExplicitOr, nil
	case "explicit_not":
		return ExplicitNot, nil
	default:
		return Default, fmt.Errorf("%w: %q", ErrUnknownCondition, s)
	}
}

func (c Condition) String() string {
	switch c {
	case And:
		return "and"
	case Or:
		return "or"
	case Not:
		return "not"
	case ExplicitAnd:
		return "explicit_and"
	case ExplicitOr:
		return "explicit_or"
	case ExplicitNot:
		return "explicit_not"
	default:
		return "default"
	}
}

// kind translates the condition to its bool occurrence.
func (c Condition) kind() Kind {
	switch c {
	case Or, ExplicitOr:
		return Should
	case Not, ExplicitNot:
		return MustNot
	default:
		return Must
	}
}

// group returns the top-level group an explicit condition opens, GroupNone otherwise.
func (c Condition) group() Group {
	switch c {
	case ExplicitAnd:
		return GroupAnd
	case ExplicitOr:
		return GroupOr
	case ExplicitNot:
		return GroupNot
	default:
		return GroupNone
	}
}

// ParseGroup maps "and", "or" or "not" to a Group.
func ParseGroup(s string) (Group, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return GroupNone, nil
	case "and":
		return GroupAnd, nil
	case "or":
		return GroupOr, nil
	case "not":
		return GroupNot, nil
	default:
		return GroupNone, fmt.Errorf("%w: group %q", ErrUnknownCondition, s)
	}
}
