// Package fetchir provides the in-memory model of a fetch query and the
// validation rules that guard every mutation of it.
//
// A fetch query is a tree:
//
//	FetchQuery (entity)
//	├── Attributes   (plain or aggregate, in insertion order)
//	├── Filter       (FilterGroup: and|or over Condition and nested FilterGroup)
//	├── Orders
//	└── Links        (LinkEntity, each with its own Attributes, Filter and Links)
//
// The model owns no behavior beyond structural storage. Builders in the
// fetchxml package mutate it through validated calls and the xmlrender
// package serializes it.
//
// SEALED FILTER ENTRIES:
//
// FilterEntry is a sealed interface using the marker method pattern. Only
// Condition and FilterGroup implement it, so renderers and validators
// dispatch with an exhaustive type switch:
//
//	switch e := entry.(type) {
//	case Condition:
//	    // leaf <condition/>
//	case FilterGroup:
//	    // nested <filter>
//	}
//
// VALIDATION:
//
// The Validate* functions are pure. Each returns a *ValidationError naming
// the offending field, and the enumerated validators return the typed value
// on success so callers can store it directly. ValidateGroup, ValidateLink
// and ValidateQuery walk hand-built trees recursively.
package fetchir
