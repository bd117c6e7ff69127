package query

import "fmt"

// Target selects which side of a Document a clause is merged into.
type Target int

const (
	TargetQuery Target = iota
	TargetFilter
)

func (t Target) String() string {
	if t == TargetFilter {
		return "filter"
	}
	return "query"
}

// Document is the composed request body before rendering.
// Once any filter clause is merged the document is filtered and both sides coexist.
type Document struct {
	query    Node
	filter   Node
	filtered bool
}

// NewFilteredDocument returns a filtered document with both sides set.
func NewFilteredDocument(q, f Node) *Document {
	return &Document{query: q, filter: f, filtered: true}
}

// Query returns the query side root.
func (d *Document) Query() Node { return d.query }

// Filter returns the filter side root.
func (d *Document) Filter() Node { return d.filter }

// IsFiltered reports whether a filter clause has been merged.
func (d *Document) IsFiltered() bool { return d.filtered }

// IsEmpty reports whether neither side holds content.
func (d *Document) IsEmpty() bool { return d.query == nil && d.filter == nil }

func (d *Document) slot(t Target) *Node {
	if t == TargetFilter {
		return &d.filter
	}
	return &d.query
}

// State is the condition memory carried between merges.
type State struct {
	LastTopLevel Group
	LastBool     Kind
	hasLastBool  bool
}

// HasLastBool reports whether LastBool was set by a merge.
func (s State) HasLastBool() bool { return s.hasLastBool }

// MergeOption tunes a single Merge call.
type MergeOption func(*mergeOptions)

type mergeOptions struct {
	condition          Condition
	minimumShouldMatch int
	boost              float64
	preferGroup        Group
}

// WithCondition sets the boolean condition for the merge.
func WithCondition(c Condition) MergeOption {
	return func(o *mergeOptions) { o.condition = c }
}

// WithMinimumShouldMatch sets minimum_should_match on the receiving BoolGroup.
// The default of 1 is never written.
func WithMinimumShouldMatch(n int) MergeOption {
	return func(o *mergeOptions) { o.minimumShouldMatch = n }
}

// WithBoost sets boost on the receiving BoolGroup.
func WithBoost(b float64) MergeOption {
	return func(o *mergeOptions) { o.boost = b }
}

// PreferGroup names the top-level group a plain condition should land in when it has content.
func PreferGroup(g Group) MergeOption {
	return func(o *mergeOptions) { o.preferGroup = g }
}

func (o *mergeOptions) apply(b *BoolGroup) {
	if o.minimumShouldMatch != 0 && o.minimumShouldMatch != 1 {
		b.minimumShouldMatch = o.minimumShouldMatch
	}
	if o.boost != 0 {
		b.boost = o.boost
	}
}

// Composer merges clauses one at a time into a Document.
// Not safe for concurrent use.
type Composer struct {
	doc   Document
	state State
}

// NewComposer returns an empty composer.
func NewComposer() *Composer {
	return &Composer{}
}

// Document returns the composed document. Callers must not mutate it.
func (c *Composer) Document() *Document { return &c.doc }

// State returns the current condition memory.
func (c *Composer) State() State { return c.state }

// Reset discards the document and the condition memory.
func (c *Composer) Reset() {
	c.doc = Document{}
	c.state = State{}
}

// Merge adds clause to the target side under the requested condition.
func (c *Composer) Merge(target Target, clause Clause, opts ...MergeOption) error {
	if len(clause) == 0 {
		return fmt.Errorf("%w: empty clause", ErrInvalidClause)
	}

	var o mergeOptions
	for _, opt := range opts {
		opt(&o)
	}

	explicit := o.condition != Default
	kind := o.condition.kind()
	if !explicit && c.state.hasLastBool {
		kind = c.state.LastBool
	}
	group := o.condition.group()

	slot := c.doc.slot(target)
	next, err := c.merge(*slot, clause, kind, group, explicit, &o)
	if err != nil {
		return fmt.Errorf("merge %s: %w", target, err)
	}
	*slot = next
	if target == TargetFilter {
		c.doc.filtered = true
	}

	c.state.LastBool = kind
	c.state.hasLastBool = true
	return nil
}

func (c *Composer) merge(
	cur Node, clause Clause, kind Kind, group Group, explicit bool, o *mergeOptions,
) (Node, error) {
	switch n := cur.(type) {
	case nil:
		switch {
		case group != GroupNone:
			c.state.LastTopLevel = group
			return newGroups(group, clause), nil
		case explicit:
			b := NewBoolGroup(kind, clause)
			o.apply(b)
			return b, nil
		default:
			return clause, nil
		}

	case *Groups:
		return c.mergeGroups(n, clause, kind, group, o)

	case *BoolGroup:
		if group != GroupNone {
			c.state.LastTopLevel = group
			return newGroups(group, n, clause), nil
		}
		n.Add(kind, clause)
		o.apply(n)
		return n, nil

	case Clause:
		if group != GroupNone {
			c.state.LastTopLevel = group
			return newGroups(group, n, clause), nil
		}
		b := NewBoolGroup(kind, n, clause)
		o.apply(b)
		return b, nil

	default:
		return nil, fmt.Errorf("%w: unexpected node %T", ErrMalformedBody, cur)
	}
}

func (c *Composer) mergeGroups(
	g *Groups, clause Clause, kind Kind, group Group, o *mergeOptions,
) (Node, error) {
	if group != GroupNone {
		g.append(group, clause)
		c.state.LastTopLevel = group
		return g, nil
	}

	target := c.selectGroup(g, o.preferGroup)
	if target == GroupNone {
		return nil, fmt.Errorf("%w: no top-level group can take a %s clause", ErrMalformedBody, kind)
	}

	tg := g.groups[target]
	b := tg.nestedBool()
	if b == nil {
		b = NewBoolGroup(kind, clause)
		tg.children = append(tg.children, b)
	} else {
		b.Add(kind, clause)
	}
	o.apply(b)
	c.state.LastTopLevel = target
	return g, nil
}

// selectGroup picks the group a plain condition lands in: the preferred group,
// then the last touched group, then the first group already holding a BoolGroup,
// then the first group at all.
func (c *Composer) selectGroup(g *Groups, prefer Group) Group {
	if g.has(prefer) {
		return prefer
	}
	if g.has(c.state.LastTopLevel) {
		return c.state.LastTopLevel
	}
	for _, k := range groupOrder {
		if g.has(k) && g.groups[k].nestedBool() != nil {
			return k
		}
	}
	for _, k := range groupOrder {
		if g.has(k) {
			return k
		}
	}
	return GroupNone
}
