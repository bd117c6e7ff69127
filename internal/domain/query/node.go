package query

// Node is an element of a composed filter or query tree.
// Implemented by Clause, *BoolGroup and *Groups.
type Node interface {
	node()
}

// Clause is an opaque backend-native leaf matcher, e.g. {"term": {"status": "active"}}.
type Clause map[string]any

func (Clause) node() {}

// Kind selects the occurrence slot of a BoolGroup.
type Kind int

const (
	Must Kind = iota
	Should
	MustNot
)

var kindNames = [...]string{"must", "should", "must_not"}

func (k Kind) String() string {
	if k < Must || k > MustNot {
		return "unknown"
	}
	return kindNames[k]
}

// Group names an explicit top-level grouping.
type Group int

const (
	GroupNone Group = iota
	GroupAnd
	GroupOr
	GroupNot
)

// groupOrder is the priority used when a plain condition must pick a group.
var groupOrder = [...]Group{GroupAnd, GroupOr, GroupNot}

func (g Group) String() string {
	switch g {
	case GroupAnd:
		return "and"
	case GroupOr:
		return "or"
	case GroupNot:
		return "not"
	default:
		return ""
	}
}

// BoolGroup is a nested boolean container with must/should/must_not children.
// Children keep insertion order per kind.
type BoolGroup struct {
	children           [3][]Node
	minimumShouldMatch int
	boost              float64
}

func (*BoolGroup) node() {}

// NewBoolGroup creates a BoolGroup holding children under kind.
func NewBoolGroup(kind Kind, children ...Node) *BoolGroup {
	b := &BoolGroup{}
	for _, c := range children {
		b.Add(kind, c)
	}
	return b
}

// Add appends n under kind.
func (b *BoolGroup) Add(kind Kind, n Node) {
	b.children[kind] = append(b.children[kind], n)
}

// Children returns the children stored under kind.
func (b *BoolGroup) Children(kind Kind) []Node { return b.children[kind] }

// MinimumShouldMatch returns the should threshold, 0 when unset.
func (b *BoolGroup) MinimumShouldMatch() int { return b.minimumShouldMatch }

// Boost returns the group boost, 0 when unset.
func (b *BoolGroup) Boost() float64 { return b.boost }

// TopLevelGroup is an explicit and/or/not grouping at the root of a document side.
type TopLevelGroup struct {
	kind     Group
	children []Node
}

// Kind returns the group kind.
func (t *TopLevelGroup) Kind() Group { return t.kind }

// Children returns the group children in insertion order.
func (t *TopLevelGroup) Children() []Node { return t.children }

// nestedBool returns the first BoolGroup child, or nil.
func (t *TopLevelGroup) nestedBool() *BoolGroup {
	for _, c := range t.children {
		if b, ok := c.(*BoolGroup); ok {
			return b
		}
	}
	return nil
}

// Groups is the root shape holding one or more explicit TopLevelGroups.
type Groups struct {
	groups [4]*TopLevelGroup // indexed by Group
}

func (*Groups) node() {}

func newGroups(kind Group, children ...Node) *Groups {
	g := &Groups{}
	for _, c := range children {
		g.append(kind, c)
	}
	return g
}

// Get returns the group of the given kind, or nil when absent or empty.
func (g *Groups) Get(kind Group) *TopLevelGroup {
	if !g.has(kind) {
		return nil
	}
	return g.groups[kind]
}

func (g *Groups) has(kind Group) bool {
	if kind <= GroupNone || kind > GroupNot {
		return false
	}
	t := g.groups[kind]
	return t != nil && len(t.children) > 0
}

func (g *Groups) append(kind Group, n Node) {
	if g.groups[kind] == nil {
		g.groups[kind] = &TopLevelGroup{kind: kind}
	}
	g.groups[kind].children = append(g.groups[kind].children, n)
}
