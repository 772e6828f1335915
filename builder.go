package fetchxml

import (
	"github.com/roach88/fetchxml/fetchir"
	"github.com/roach88/fetchxml/logging"
	"github.com/roach88/fetchxml/xmlrender"
)

// DefaultPageSize is the page size used by Page.
const DefaultPageSize = 50

// Builder is the fluent API for one fetch query bound to one entity.
//
// Every mutating method returns the same *Builder. A call whose input fails
// validation leaves the query untouched, is logged at error level and stores
// the error; Err reports it immediately and Build returns it unchanged.
// After a failure every further mutating call is a no-op.
//
// A Builder is not safe for concurrent use. Separate builders share nothing.
type Builder struct {
	query    *fetchir.FetchQuery
	renderer *xmlrender.XMLRenderer
	log      *logging.Logger
	err      error
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for diagnostics. The default discards.
func WithLogger(l *logging.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// New returns a Builder for entity.
func New(entity string, opts ...Option) *Builder {
	b := &Builder{
		query:    fetchir.NewFetchQuery(entity),
		renderer: xmlrender.NewXMLRenderer(),
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}

	if err := fetchir.ValidateEntityName(entity); err != nil {
		b.fail("new", err)
		return b
	}
	b.log.Debug("builder created", logging.Fields{"entity": entity})
	return b
}

// Err returns the first validation error recorded by this builder or any
// JoinBuilder obtained from it.
func (b *Builder) Err() error {
	return b.err
}

// Entity returns the bound entity name.
func (b *Builder) Entity() string {
	return b.query.Entity
}

// Query returns the query model being built. It must not be modified.
func (b *Builder) Query() *fetchir.FetchQuery {
	return b.query
}

func (b *Builder) fail(op string, err error) {
	b.log.Error("fetch builder call rejected", logging.Fields{
		"op":     op,
		"entity": b.query.Entity,
		"error":  err.Error(),
	})
	b.err = err
}

// Select appends plain attributes in call order. All names are validated
// before any is appended.
func (b *Builder) Select(names ...string) *Builder {
	if b.err != nil {
		return b
	}
	attrs, err := plainAttributes(names)
	if err != nil {
		b.fail("select", err)
		return b
	}
	b.query.Attributes = append(b.query.Attributes, attrs...)
	b.log.Debug("attributes selected", logging.Fields{"entity": b.query.Entity, "names": names})
	return b
}

// SelectAs appends an aliased attribute.
func (b *Builder) SelectAs(name, alias string) *Builder {
	if b.err != nil {
		return b
	}
	attr, err := aliasedAttribute(name, alias)
	if err != nil {
		b.fail("selectAs", err)
		return b
	}
	b.query.Attributes = append(b.query.Attributes, attr)
	return b
}

// Count appends a count aggregate. An empty attribute defaults to the
// entity's primary key, "<entity>id". An empty alias means no alias.
func (b *Builder) Count(attribute, alias string) *Builder {
	if attribute == "" {
		attribute = b.query.Entity + "id"
	}
	return b.aggregate("count", attribute, fetchir.AggCount, alias)
}

// CountColumn appends a countcolumn aggregate.
func (b *Builder) CountColumn(attribute, alias string) *Builder {
	return b.aggregate("countColumn", attribute, fetchir.AggCountColumn, alias)
}

// Sum appends a sum aggregate.
func (b *Builder) Sum(attribute, alias string) *Builder {
	return b.aggregate("sum", attribute, fetchir.AggSum, alias)
}

// Avg appends an avg aggregate.
func (b *Builder) Avg(attribute, alias string) *Builder {
	return b.aggregate("avg", attribute, fetchir.AggAvg, alias)
}

// Min appends a min aggregate.
func (b *Builder) Min(attribute, alias string) *Builder {
	return b.aggregate("min", attribute, fetchir.AggMin, alias)
}

// Max appends a max aggregate.
func (b *Builder) Max(attribute, alias string) *Builder {
	return b.aggregate("max", attribute, fetchir.AggMax, alias)
}

// Aggregate appends an aggregate attribute whose function is given by name.
func (b *Builder) Aggregate(attribute, aggregate, alias string) *Builder {
	if b.err != nil {
		return b
	}
	agg, err := fetchir.ValidateAggregateType(aggregate)
	if err != nil {
		b.fail("aggregate", err)
		return b
	}
	return b.aggregate("aggregate", attribute, agg, alias)
}

func (b *Builder) aggregate(op, attribute string, agg fetchir.AggregateType, alias string) *Builder {
	if b.err != nil {
		return b
	}
	attr, err := aggregateAttribute(attribute, agg, alias)
	if err != nil {
		b.fail(op, err)
		return b
	}
	b.query.Attributes = append(b.query.Attributes, attr)
	b.log.Debug("aggregate selected", logging.Fields{"entity": b.query.Entity, "name": attr.Name, "aggregate": string(agg)})
	return b
}

// Where appends a condition to the implicit top-level and-group, creating
// the group on first use. A nil value means no value.
func (b *Builder) Where(attribute, operator string, value any) *Builder {
	if b.err != nil {
		return b
	}
	cond, err := condition(attribute, operator, value)
	if err != nil {
		b.fail("where", err)
		return b
	}
	b.query.Filter = appendFilterEntry(b.query.Filter, cond)
	return b
}

// Filter validates a hand-built group recursively and appends it as a nested
// entry of the implicit top-level and-group. This is the way to reach or
// semantics and deeper nesting.
func (b *Builder) Filter(group fetchir.FilterGroup) *Builder {
	if b.err != nil {
		return b
	}
	if err := fetchir.ValidateGroup(group); err != nil {
		b.fail("filter", err)
		return b
	}
	b.query.Filter = appendFilterEntry(b.query.Filter, group.Clone())
	return b
}

// OrderBy appends a sort clause. An empty order means asc.
func (b *Builder) OrderBy(attribute, order string) *Builder {
	if b.err != nil {
		return b
	}
	if order == "" {
		order = string(fetchir.OrderAsc)
	}
	if err := fetchir.ValidateAttributeName(attribute); err != nil {
		b.fail("orderBy", err)
		return b
	}
	ot, err := fetchir.ValidateOrderType(order)
	if err != nil {
		b.fail("orderBy", err)
		return b
	}
	b.query.Orders = append(b.query.Orders, fetchir.OrderBy{Attribute: attribute, Order: ot})
	return b
}

// Top limits the result count. The last call wins.
func (b *Builder) Top(n int) *Builder {
	if b.err != nil {
		return b
	}
	if err := fetchir.ValidateTop(n); err != nil {
		b.fail("top", err)
		return b
	}
	b.query.Top = n
	return b
}

// Page selects a page of DefaultPageSize records.
func (b *Builder) Page(page int) *Builder {
	return b.PageWithSize(page, DefaultPageSize)
}

// PageWithSize selects a page of size records.
func (b *Builder) PageWithSize(page, size int) *Builder {
	if b.err != nil {
		return b
	}
	if err := fetchir.ValidatePagination(page, size); err != nil {
		b.fail("page", err)
		return b
	}
	b.query.Page = page
	b.query.Count = size
	return b
}

// Distinct marks the query distinct.
func (b *Builder) Distinct() *Builder {
	if b.err != nil {
		return b
	}
	b.query.Distinct = true
	return b
}

// GroupBy validates attribute but does not change the query: nothing is
// rendered for it.
func (b *Builder) GroupBy(attribute string) *Builder {
	if b.err != nil {
		return b
	}
	if err := fetchir.ValidateAttributeName(attribute); err != nil {
		b.fail("groupBy", err)
		return b
	}
	b.log.Debug("groupBy accepted without rendered effect", logging.Fields{"entity": b.query.Entity, "attribute": attribute})
	return b
}

// Join appends a link entity joined on from/to and returns a JoinBuilder
// scoped to it. Calling Join repeatedly adds sibling links.
func (b *Builder) Join(entity, from, to string, opts ...JoinOption) *JoinBuilder {
	j := &JoinBuilder{parent: b}
	if b.err != nil {
		return j
	}

	link, err := newLink(entity, from, to, opts)
	if err != nil {
		b.fail("join", err)
		return j
	}
	b.query.Links = append(b.query.Links, link)
	j.link = link
	b.log.Debug("link entity joined", logging.Fields{"entity": b.query.Entity, "link": entity, "from": from, "to": to})
	return j
}

// AddLink validates a hand-built link entity, including its nested links,
// and appends a deep copy of it. Later changes to link do not reach the query.
func (b *Builder) AddLink(link *fetchir.LinkEntity) *Builder {
	if b.err != nil {
		return b
	}
	if err := fetchir.ValidateLink(link); err != nil {
		b.fail("addLink", err)
		return b
	}
	b.query.Links = append(b.query.Links, link.Clone())
	return b
}

// Build renders the query. A recorded validation error is returned as is;
// a rendering failure is returned as *fetchir.QueryBuildError.
func (b *Builder) Build() (string, error) {
	if b.err != nil {
		return "", b.err
	}
	out, err := b.renderer.Render(b.query)
	if err != nil {
		buildErr := fetchir.NewQueryBuildError(err)
		b.log.Error("fetch query render failed", logging.Fields{"entity": b.query.Entity, "error": err.Error()})
		return "", buildErr
	}
	b.log.Debug("fetch query built", logging.Fields{"entity": b.query.Entity, "bytes": len(out)})
	return out, nil
}
