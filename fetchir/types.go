package fetchir

// Operator is a condition comparison operator.
type Operator string

// Condition operators accepted by the fetch dialect.
const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpGt         Operator = "gt"
	OpGe         Operator = "ge"
	OpLt         Operator = "lt"
	OpLe         Operator = "le"
	OpLike       Operator = "like"
	OpNotLike    Operator = "not-like"
	OpIn         Operator = "in"
	OpNotIn      Operator = "not-in"
	OpBetween    Operator = "between"
	OpNotBetween Operator = "not-between"
	OpNull       Operator = "null"
	OpNotNull    Operator = "not-null"
	OpYesterday  Operator = "yesterday"
	OpToday      Operator = "today"
	OpTomorrow   Operator = "tomorrow"
	OpLast7Days  Operator = "last-seven-days"
	OpNext7Days  Operator = "next-seven-days"
	OpLastWeek   Operator = "last-week"
	OpThisWeek   Operator = "this-week"
	OpNextWeek   Operator = "next-week"
	OpLastMonth  Operator = "last-month"
	OpThisMonth  Operator = "this-month"
	OpNextMonth  Operator = "next-month"
	OpOn         Operator = "on"
	OpOnOrBefore Operator = "on-or-before"
	OpOnOrAfter  Operator = "on-or-after"
)

// Operators lists every supported operator in declaration order.
var Operators = []Operator{
	OpEq, OpNe, OpGt, OpGe, OpLt, OpLe,
	OpLike, OpNotLike, OpIn, OpNotIn, OpBetween, OpNotBetween,
	OpNull, OpNotNull,
	OpYesterday, OpToday, OpTomorrow, OpLast7Days, OpNext7Days,
	OpLastWeek, OpThisWeek, OpNextWeek,
	OpLastMonth, OpThisMonth, OpNextMonth,
	OpOn, OpOnOrBefore, OpOnOrAfter,
}

// OrderType is the sort direction of an order clause.
type OrderType string

const (
	OrderAsc  OrderType = "asc"
	OrderDesc OrderType = "desc"
)

// AggregateType is the function applied to an aggregate attribute.
type AggregateType string

const (
	AggCount       AggregateType = "count"
	AggCountColumn AggregateType = "countcolumn"
	AggSum         AggregateType = "sum"
	AggAvg         AggregateType = "avg"
	AggMin         AggregateType = "min"
	AggMax         AggregateType = "max"
)

// Aggregates lists every supported aggregate function.
var Aggregates = []AggregateType{AggCount, AggCountColumn, AggSum, AggAvg, AggMin, AggMax}

// FilterType is the logical connective of a filter group.
type FilterType string

const (
	FilterAnd FilterType = "and"
	FilterOr  FilterType = "or"
)

// LinkType is the join kind of a link entity.
type LinkType string

const (
	LinkInner LinkType = "inner"
	LinkOuter LinkType = "outer"
)

// Bounds for top and page size, inclusive.
const (
	MinPageSize = 1
	MaxPageSize = 5000
	MinPage     = 1
	MinTop      = 1
	MaxTop      = 5000
)

// Attribute is a selected column.
//
// An Attribute with a non-empty Aggregate is an aggregate attribute: the
// column is computed with that function instead of selected raw. Alias is
// optional for both kinds; the empty string means no alias.
type Attribute struct {
	Name      string
	Alias     string
	Aggregate AggregateType
}

// IsAggregate reports whether the attribute carries an aggregate function.
func (a Attribute) IsAggregate() bool {
	return a.Aggregate != ""
}

// FilterEntry is one entry of a FilterGroup: either a Condition or a nested
// FilterGroup.
//
// This is a sealed interface - only types in this package implement it.
type FilterEntry interface {
	filterEntry() // Marker method - seals interface to this package
}

// Condition compares one attribute against an optional value.
//
// A nil Value means the value is absent. Unary operators such as null and
// not-null are written this way and render without a value attribute.
type Condition struct {
	Attribute string
	Operator  Operator
	Value     any
}

func (Condition) filterEntry() {}

// FilterGroup combines conditions and nested groups with and/or.
//
// An empty Conditions slice is legal and still renders as a well-formed
// filter element. Nesting depth is unbounded.
type FilterGroup struct {
	Type       FilterType
	Conditions []FilterEntry
}

func (FilterGroup) filterEntry() {}

// Add appends entries to the group in order.
func (g *FilterGroup) Add(entries ...FilterEntry) {
	g.Conditions = append(g.Conditions, entries...)
}

// Clone returns a deep copy of g. Nested groups and condition pointers are
// copied so that later writes through the original never reach the copy.
// Condition values themselves are copied shallowly.
func (g FilterGroup) Clone() FilterGroup {
	out := FilterGroup{Type: g.Type}
	if g.Conditions == nil {
		return out
	}
	out.Conditions = make([]FilterEntry, len(g.Conditions))
	for i, entry := range g.Conditions {
		switch e := entry.(type) {
		case FilterGroup:
			out.Conditions[i] = e.Clone()
		case *FilterGroup:
			if e != nil {
				c := e.Clone()
				out.Conditions[i] = &c
			} else {
				out.Conditions[i] = e
			}
		case *Condition:
			if e != nil {
				c := *e
				out.Conditions[i] = &c
			} else {
				out.Conditions[i] = e
			}
		default:
			out.Conditions[i] = entry
		}
	}
	return out
}

// Cond returns a Condition value.
func Cond(attribute string, op Operator, value any) Condition {
	return Condition{Attribute: attribute, Operator: op, Value: value}
}

// And returns an and-group over entries.
func And(entries ...FilterEntry) FilterGroup {
	return FilterGroup{Type: FilterAnd, Conditions: entries}
}

// Or returns an or-group over entries.
func Or(entries ...FilterEntry) FilterGroup {
	return FilterGroup{Type: FilterOr, Conditions: entries}
}

// OrderBy is one sort clause.
type OrderBy struct {
	Attribute string
	Order     OrderType
}

// Descending reports whether the clause sorts descending.
func (o OrderBy) Descending() bool {
	return o.Order == OrderDesc
}

// LinkEntity is a joined entity connected to its parent by From/To.
//
// Links holds pointers so a builder can keep mutating a link after further
// siblings are appended.
type LinkEntity struct {
	Name       string
	From       string
	To         string
	Alias      string
	LinkType   LinkType
	Attributes []Attribute
	Filter     *FilterGroup
	Links      []*LinkEntity
}

// Clone returns a deep copy of l and every link nested below it.
func (l *LinkEntity) Clone() *LinkEntity {
	if l == nil {
		return nil
	}
	out := *l
	if l.Attributes != nil {
		out.Attributes = append([]Attribute(nil), l.Attributes...)
	}
	if l.Filter != nil {
		g := l.Filter.Clone()
		out.Filter = &g
	}
	if l.Links != nil {
		out.Links = make([]*LinkEntity, len(l.Links))
		for i, child := range l.Links {
			out.Links[i] = child.Clone()
		}
	}
	return &out
}

// FetchQuery is the root of a fetch query tree.
//
// Zero values of Top, Page and Count mean unset. The query exclusively owns
// every node below it; nothing is shared between queries.
type FetchQuery struct {
	Entity     string
	Attributes []Attribute
	Filter     *FilterGroup
	Orders     []OrderBy
	Links      []*LinkEntity
	Distinct   bool
	Top        int
	Page       int
	Count      int
}

// NewFetchQuery returns an empty query bound to entity.
func NewFetchQuery(entity string) *FetchQuery {
	return &FetchQuery{Entity: entity}
}
