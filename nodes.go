package fetchxml

import "github.com/roach88/fetchxml/fetchir"

// plainAttributes validates every name before returning any attribute.
func plainAttributes(names []string) ([]fetchir.Attribute, error) {
	attrs := make([]fetchir.Attribute, 0, len(names))
	for _, name := range names {
		if err := fetchir.ValidateAttributeName(name); err != nil {
			return nil, err
		}
		attrs = append(attrs, fetchir.Attribute{Name: name})
	}
	return attrs, nil
}

func aliasedAttribute(name, alias string) (fetchir.Attribute, error) {
	if err := fetchir.ValidateAttributeName(name); err != nil {
		return fetchir.Attribute{}, err
	}
	if err := fetchir.ValidateAlias(alias); err != nil {
		return fetchir.Attribute{}, err
	}
	return fetchir.Attribute{Name: name, Alias: alias}, nil
}

func aggregateAttribute(name string, agg fetchir.AggregateType, alias string) (fetchir.Attribute, error) {
	if err := fetchir.ValidateAttributeName(name); err != nil {
		return fetchir.Attribute{}, err
	}
	if alias != "" {
		if err := fetchir.ValidateAlias(alias); err != nil {
			return fetchir.Attribute{}, err
		}
	}
	return fetchir.Attribute{Name: name, Alias: alias, Aggregate: agg}, nil
}

func condition(attribute, operator string, value any) (fetchir.Condition, error) {
	if err := fetchir.ValidateAttributeName(attribute); err != nil {
		return fetchir.Condition{}, err
	}
	op, err := fetchir.ValidateFilterOperator(operator)
	if err != nil {
		return fetchir.Condition{}, err
	}
	return fetchir.Cond(attribute, op, value), nil
}

// appendFilterEntry adds entry to the implicit top-level and-group, creating
// it when filter is nil.
func appendFilterEntry(filter *fetchir.FilterGroup, entry fetchir.FilterEntry) *fetchir.FilterGroup {
	if filter == nil {
		filter = &fetchir.FilterGroup{Type: fetchir.FilterAnd}
	}
	filter.Add(entry)
	return filter
}
