package cli

import (
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/fetchxml"
	"github.com/roach88/fetchxml/fetchir"
	"github.com/roach88/fetchxml/logging"
)

// Definition is a declarative fetch query loaded from a YAML, JSON or CUE
// file. Field names match the file keys.
type Definition struct {
	Entity     string         `json:"entity" yaml:"entity"`
	Distinct   bool           `json:"distinct,omitempty" yaml:"distinct"`
	Top        *int           `json:"top,omitempty" yaml:"top"`
	Page       *PageDef       `json:"page,omitempty" yaml:"page"`
	Attributes []AttributeDef `json:"attributes,omitempty" yaml:"attributes"`
	Aggregates []AggregateDef `json:"aggregates,omitempty" yaml:"aggregates"`
	Where      []ConditionDef `json:"where,omitempty" yaml:"where"`
	Filter     *FilterDef     `json:"filter,omitempty" yaml:"filter"`
	Orders     []OrderDef     `json:"orders,omitempty" yaml:"orders"`
	Links      []LinkDef      `json:"links,omitempty" yaml:"links"`
	GroupBy    []string       `json:"group_by,omitempty" yaml:"group_by"`
}

// PageDef selects a page. A zero size means fetchxml.DefaultPageSize.
type PageDef struct {
	Number int `json:"number" yaml:"number"`
	Size   int `json:"size,omitempty" yaml:"size"`
}

type AttributeDef struct {
	Name  string `json:"name" yaml:"name"`
	Alias string `json:"alias,omitempty" yaml:"alias"`
}

// AggregateDef is an aggregate column. An empty attribute on a count
// aggregate means the entity's primary key.
type AggregateDef struct {
	Attribute string `json:"attribute,omitempty" yaml:"attribute"`
	Aggregate string `json:"aggregate" yaml:"aggregate"`
	Alias     string `json:"alias,omitempty" yaml:"alias"`
}

type ConditionDef struct {
	Attribute string `json:"attribute" yaml:"attribute"`
	Operator  string `json:"operator" yaml:"operator"`
	Value     any    `json:"value,omitempty" yaml:"value"`
}

// FilterDef is a nested filter group. Conditions render before groups.
type FilterDef struct {
	Type       string         `json:"type" yaml:"type"`
	Conditions []ConditionDef `json:"conditions,omitempty" yaml:"conditions"`
	Groups     []FilterDef    `json:"groups,omitempty" yaml:"groups"`
}

type OrderDef struct {
	Attribute string `json:"attribute" yaml:"attribute"`
	Order     string `json:"order,omitempty" yaml:"order"`
}

type LinkDef struct {
	Name       string         `json:"name" yaml:"name"`
	From       string         `json:"from" yaml:"from"`
	To         string         `json:"to" yaml:"to"`
	Alias      string         `json:"alias,omitempty" yaml:"alias"`
	Type       string         `json:"type,omitempty" yaml:"type"`
	Attributes []AttributeDef `json:"attributes,omitempty" yaml:"attributes"`
	Where      []ConditionDef `json:"where,omitempty" yaml:"where"`
	Filter     *FilterDef     `json:"filter,omitempty" yaml:"filter"`
}

// Normalize puts every identifier in Unicode NFC so that names typed with
// combining characters match the precomposed schema names. Values are left
// untouched.
func (d *Definition) Normalize() {
	d.Entity = nfc(d.Entity)
	normalizeAttributes(d.Attributes)
	for i := range d.Aggregates {
		d.Aggregates[i].Attribute = nfc(d.Aggregates[i].Attribute)
		d.Aggregates[i].Alias = nfc(d.Aggregates[i].Alias)
	}
	normalizeConditions(d.Where)
	d.Filter.normalize()
	for i := range d.Orders {
		d.Orders[i].Attribute = nfc(d.Orders[i].Attribute)
	}
	for i := range d.Links {
		l := &d.Links[i]
		l.Name, l.From, l.To, l.Alias = nfc(l.Name), nfc(l.From), nfc(l.To), nfc(l.Alias)
		normalizeAttributes(l.Attributes)
		normalizeConditions(l.Where)
		l.Filter.normalize()
	}
	for i := range d.GroupBy {
		d.GroupBy[i] = nfc(d.GroupBy[i])
	}
}

func (f *FilterDef) normalize() {
	if f == nil {
		return
	}
	normalizeConditions(f.Conditions)
	for i := range f.Groups {
		f.Groups[i].normalize()
	}
}

func normalizeAttributes(attrs []AttributeDef) {
	for i := range attrs {
		attrs[i].Name = nfc(attrs[i].Name)
		attrs[i].Alias = nfc(attrs[i].Alias)
	}
}

func normalizeConditions(conds []ConditionDef) {
	for i := range conds {
		conds[i].Attribute = nfc(conds[i].Attribute)
	}
}

func nfc(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

// Builder replays the definition as fluent builder calls. The first
// rejected call is available from the returned builder's Err.
func (d *Definition) Builder(log *logging.Logger) *fetchxml.Builder {
	b := fetchxml.New(d.Entity, fetchxml.WithLogger(log))

	for _, a := range d.Attributes {
		if a.Alias != "" {
			b.SelectAs(a.Name, a.Alias)
		} else {
			b.Select(a.Name)
		}
	}
	for _, a := range d.Aggregates {
		attribute := a.Attribute
		if attribute == "" && a.Aggregate == string(fetchir.AggCount) {
			attribute = d.Entity + "id"
		}
		b.Aggregate(attribute, a.Aggregate, a.Alias)
	}
	for _, c := range d.Where {
		b.Where(c.Attribute, c.Operator, c.Value)
	}
	if d.Filter != nil {
		b.Filter(d.Filter.group())
	}
	for _, o := range d.Orders {
		b.OrderBy(o.Attribute, o.Order)
	}
	for _, l := range d.Links {
		var opts []fetchxml.JoinOption
		if l.Alias != "" {
			opts = append(opts, fetchxml.WithAlias(l.Alias))
		}
		if l.Type != "" {
			opts = append(opts, fetchxml.WithLinkType(l.Type))
		}
		j := b.Join(l.Name, l.From, l.To, opts...)
		for _, a := range l.Attributes {
			if a.Alias != "" {
				j.SelectAs(a.Name, a.Alias)
			} else {
				j.Select(a.Name)
			}
		}
		for _, c := range l.Where {
			j.Where(c.Attribute, c.Operator, c.Value)
		}
		if l.Filter != nil {
			j.Filter(l.Filter.group())
		}
		j.End()
	}
	if d.Top != nil {
		b.Top(*d.Top)
	}
	if d.Page != nil {
		size := d.Page.Size
		if size == 0 {
			size = fetchxml.DefaultPageSize
		}
		b.PageWithSize(d.Page.Number, size)
	}
	if d.Distinct {
		b.Distinct()
	}
	for _, attr := range d.GroupBy {
		b.GroupBy(attr)
	}
	return b
}

// Query converts the definition straight into a query tree without
// validating it, so that fetchir.ValidateQuery can report every problem at
// once. An explicit top or page number of zero is indistinguishable from
// unset in the tree; Builder rejects it.
func (d *Definition) Query() *fetchir.FetchQuery {
	q := fetchir.NewFetchQuery(d.Entity)
	q.Attributes = attributes(d.Attributes)
	for _, a := range d.Aggregates {
		attribute := a.Attribute
		if attribute == "" && a.Aggregate == string(fetchir.AggCount) {
			attribute = d.Entity + "id"
		}
		q.Attributes = append(q.Attributes, fetchir.Attribute{
			Name:      attribute,
			Alias:     a.Alias,
			Aggregate: fetchir.AggregateType(a.Aggregate),
		})
	}
	q.Filter = conditionsGroup(d.Where, d.Filter)
	for _, o := range d.Orders {
		order := fetchir.OrderType(o.Order)
		if order == "" {
			order = fetchir.OrderAsc
		}
		q.Orders = append(q.Orders, fetchir.OrderBy{Attribute: o.Attribute, Order: order})
	}
	for _, l := range d.Links {
		q.Links = append(q.Links, &fetchir.LinkEntity{
			Name:       l.Name,
			From:       l.From,
			To:         l.To,
			Alias:      l.Alias,
			LinkType:   fetchir.LinkType(l.Type),
			Attributes: attributes(l.Attributes),
			Filter:     conditionsGroup(l.Where, l.Filter),
		})
	}
	q.Distinct = d.Distinct
	if d.Top != nil {
		q.Top = *d.Top
	}
	if d.Page != nil {
		q.Page, q.Count = d.Page.Number, d.Page.Size
		if q.Count == 0 {
			q.Count = fetchxml.DefaultPageSize
		}
	}
	return q
}

func attributes(defs []AttributeDef) []fetchir.Attribute {
	var attrs []fetchir.Attribute
	for _, a := range defs {
		attrs = append(attrs, fetchir.Attribute{Name: a.Name, Alias: a.Alias})
	}
	return attrs
}

// conditionsGroup mirrors the builder: flat conditions and the nested
// filter share one implicit and-group.
func conditionsGroup(where []ConditionDef, filter *FilterDef) *fetchir.FilterGroup {
	if len(where) == 0 && filter == nil {
		return nil
	}
	g := &fetchir.FilterGroup{Type: fetchir.FilterAnd}
	for _, c := range where {
		g.Add(fetchir.Cond(c.Attribute, fetchir.Operator(c.Operator), c.Value))
	}
	if filter != nil {
		g.Add(filter.group())
	}
	return g
}

func (f *FilterDef) group() fetchir.FilterGroup {
	g := fetchir.FilterGroup{Type: fetchir.FilterType(f.Type)}
	for _, c := range f.Conditions {
		g.Add(fetchir.Cond(c.Attribute, fetchir.Operator(c.Operator), c.Value))
	}
	for _, sub := range f.Groups {
		g.Add(sub.group())
	}
	return g
}
