package fetchir

import (
	"fmt"
	"strings"
)

var (
	operatorSet  = toSet(Operators)
	aggregateSet = toSet(Aggregates)
	orderSet     = toSet([]OrderType{OrderAsc, OrderDesc})
	linkTypeSet  = toSet([]LinkType{LinkInner, LinkOuter})
	filterSet    = toSet([]FilterType{FilterAnd, FilterOr})
)

func toSet[T ~string](values []T) map[T]struct{} {
	set := make(map[T]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidateFilterOperator checks op against the supported operator set and
// returns it typed.
func ValidateFilterOperator(op string) (Operator, error) {
	if _, ok := operatorSet[Operator(op)]; !ok {
		return "", invalid("operator", "unsupported condition operator %q", op)
	}
	return Operator(op), nil
}

// ValidateOrderType checks order against asc|desc.
func ValidateOrderType(order string) (OrderType, error) {
	if _, ok := orderSet[OrderType(order)]; !ok {
		return "", invalid("order", "invalid order %q: must be one of asc, desc", order)
	}
	return OrderType(order), nil
}

// ValidateAggregateType checks agg against the supported aggregate functions.
func ValidateAggregateType(agg string) (AggregateType, error) {
	if _, ok := aggregateSet[AggregateType(agg)]; !ok {
		return "", invalid("aggregate", "invalid aggregate %q: must be one of count, countcolumn, sum, avg, min, max", agg)
	}
	return AggregateType(agg), nil
}

// ValidateLinkType checks t against inner|outer.
func ValidateLinkType(t string) (LinkType, error) {
	if _, ok := linkTypeSet[LinkType(t)]; !ok {
		return "", invalid("link-type", "invalid link type %q: must be one of inner, outer", t)
	}
	return LinkType(t), nil
}

// ValidateFilterType checks t against and|or.
func ValidateFilterType(t string) (FilterType, error) {
	if _, ok := filterSet[FilterType(t)]; !ok {
		return "", invalid("filter", "invalid filter type %q: must be one of and, or", t)
	}
	return FilterType(t), nil
}

// ValidateAttributeName fails if name is empty or whitespace-only.
func ValidateAttributeName(name string) error {
	return validateName("attribute", name)
}

// ValidateEntityName fails if name is empty or whitespace-only.
func ValidateEntityName(name string) error {
	return validateName("entity", name)
}

// ValidateAlias fails if alias is empty or whitespace-only.
func ValidateAlias(alias string) error {
	return validateName("alias", alias)
}

func validateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid(field, "%s name must be a non-empty, non-whitespace string, got %q", field, name)
	}
	return nil
}

// ValidatePagination fails if page < 1 or count is outside [1, 5000].
func ValidatePagination(page, count int) error {
	if page < MinPage {
		return invalid("page", "page number must be >= %d, got %d", MinPage, page)
	}
	if count < MinPageSize || count > MaxPageSize {
		return invalid("count", "page size must be between %d and %d, got %d", MinPageSize, MaxPageSize, count)
	}
	return nil
}

// ValidateTop fails if top is outside [1, 5000].
func ValidateTop(top int) error {
	if top < MinTop || top > MaxTop {
		return invalid("top", "top must be between %d and %d, got %d", MinTop, MaxTop, top)
	}
	return nil
}

// ValidateGroup walks g recursively and returns the first validation error.
func ValidateGroup(g FilterGroup) error {
	v := &validator{failFast: true}
	v.validateGroup(g, "filter")
	return v.first()
}

// ValidateLink walks l, its filter and its nested links recursively and
// returns the first validation error.
func ValidateLink(l *LinkEntity) error {
	v := &validator{failFast: true}
	v.validateLink(l, "link")
	return v.first()
}

// ValidateQuery walks the whole tree and returns every validation error
// found. It does not fail fast.
func ValidateQuery(q *FetchQuery) []error {
	v := &validator{}
	if q == nil {
		v.add(&ValidationError{Field: "query", Message: "query is nil"}, "fetch")
		return v.errs
	}
	v.check(ValidateEntityName(q.Entity), "entity")
	v.validateAttributes(q.Attributes, "entity")
	if q.Filter != nil {
		v.validateGroup(*q.Filter, "entity.filter")
	}
	for i, o := range q.Orders {
		v.check(ValidateAttributeName(o.Attribute), fmt.Sprintf("entity.order[%d]", i))
		_, err := ValidateOrderType(string(o.Order))
		v.check(err, fmt.Sprintf("entity.order[%d]", i))
	}
	for i, l := range q.Links {
		v.validateLink(l, fmt.Sprintf("entity.link[%d]", i))
	}
	if q.Top != 0 {
		v.check(ValidateTop(q.Top), "fetch")
	}
	if q.Page != 0 || q.Count != 0 {
		v.check(ValidatePagination(q.Page, q.Count), "fetch")
	}
	return v.errs
}

// validator accumulates errors during traversal.
type validator struct {
	errs     []error
	failFast bool
}

func (v *validator) first() error {
	if len(v.errs) == 0 {
		return nil
	}
	return v.errs[0]
}

func (v *validator) done() bool {
	return v.failFast && len(v.errs) > 0
}

// check records err at path if it is non-nil.
func (v *validator) check(err error, path string) {
	if err == nil || v.done() {
		return
	}
	if ve, ok := err.(*ValidationError); ok {
		v.add(ve, path)
		return
	}
	v.errs = append(v.errs, err)
}

func (v *validator) add(ve *ValidationError, path string) {
	located := *ve
	located.Path = path
	v.errs = append(v.errs, &located)
}

func (v *validator) validateAttributes(attrs []Attribute, path string) {
	for i, a := range attrs {
		p := fmt.Sprintf("%s.attribute[%d]", path, i)
		v.check(ValidateAttributeName(a.Name), p)
		if a.Alias != "" {
			v.check(ValidateAlias(a.Alias), p)
		}
		if a.IsAggregate() {
			_, err := ValidateAggregateType(string(a.Aggregate))
			v.check(err, p)
		}
	}
}

// validateGroup recursively validates a group and its entries.
func (v *validator) validateGroup(g FilterGroup, path string) {
	if v.done() {
		return
	}
	_, err := ValidateFilterType(string(g.Type))
	v.check(err, path)

	for i, entry := range g.Conditions {
		p := fmt.Sprintf("%s[%d]", path, i)
		switch e := entry.(type) {
		case Condition:
			v.validateCondition(e, p)
		case *Condition:
			if e == nil {
				v.add(&ValidationError{Field: "condition", Message: "nil condition"}, p)
				continue
			}
			v.validateCondition(*e, p)
		case FilterGroup:
			v.validateGroup(e, p)
		case *FilterGroup:
			if e == nil {
				v.add(&ValidationError{Field: "filter", Message: "nil filter group"}, p)
				continue
			}
			v.validateGroup(*e, p)
		default:
			v.add(&ValidationError{Field: "filter", Message: fmt.Sprintf("unknown filter entry type: %T", entry)}, p)
		}
	}
}

func (v *validator) validateCondition(c Condition, path string) {
	v.check(ValidateAttributeName(c.Attribute), path)
	_, err := ValidateFilterOperator(string(c.Operator))
	v.check(err, path)
}

// validateLink recursively validates a link and its nested links.
func (v *validator) validateLink(l *LinkEntity, path string) {
	if v.done() {
		return
	}
	if l == nil {
		v.add(&ValidationError{Field: "link", Message: "nil link entity"}, path)
		return
	}
	v.check(ValidateEntityName(l.Name), path)
	v.check(ValidateAttributeName(l.From), path)
	v.check(ValidateAttributeName(l.To), path)
	if l.Alias != "" {
		v.check(ValidateAlias(l.Alias), path)
	}
	if l.LinkType != "" {
		_, err := ValidateLinkType(string(l.LinkType))
		v.check(err, path)
	}
	v.validateAttributes(l.Attributes, path)
	if l.Filter != nil {
		v.validateGroup(*l.Filter, path+".filter")
	}
	for i, nested := range l.Links {
		v.validateLink(nested, fmt.Sprintf("%s.link[%d]", path, i))
	}
}
