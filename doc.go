// Package fetchxml builds fetch XML query documents from chained calls.
//
// A Builder is bound to one entity. Calls select attributes, add
// aggregates, conditions, sort clauses, pagination and joins; Build renders
// the result:
//
//	xml, err := fetchxml.New("account").
//	    Select("name", "accountnumber").
//	    Where("statecode", "eq", 0).
//	    OrderBy("name", "asc").
//	    Join("contact", "accountid", "parentcustomerid", fetchxml.WithAlias("c")).
//	    Select("fullname").
//	    End().
//	    Top(10).
//	    Build()
//
// Every input is validated when the call is made. A rejected call leaves the
// query unchanged and its *fetchir.ValidationError is available from Err and
// returned by Build. Conditions added with Where accumulate in one implicit
// and-group; Filter accepts a group built with fetchir.And, fetchir.Or and
// fetchir.Cond for or semantics and nesting.
//
// The query model lives in package fetchir and serialization in package
// xmlrender.
package fetchxml
