package fetchxml

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/fetchxml/fetchir"
	"github.com/roach88/fetchxml/internal/testutil"
	"github.com/roach88/fetchxml/logging"
)

func mustBuild(t *testing.T, b *Builder) string {
	t.Helper()
	out, err := b.Build()
	require.NoError(t, err)
	return out
}

func requireValidationField(t *testing.T, err error, field string) {
	t.Helper()
	var ve *fetchir.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, field, ve.Field)
}

func TestBuild_EmptyQuery(t *testing.T) {
	for _, entity := range []string{"account", "contact", "x"} {
		assert.Equal(t, `<fetch><entity name="`+entity+`"></entity></fetch>`, mustBuild(t, New(entity)))
	}
}

func TestNew_InvalidEntity(t *testing.T) {
	for _, entity := range []string{"", "  ", "\t"} {
		b := New(entity)
		requireValidationField(t, b.Err(), "entity")

		_, err := b.Build()
		assert.Same(t, b.Err(), err)
	}
}

func TestSelect_PreservesCallOrder(t *testing.T) {
	b := New("account").Select("zeta", "alpha").Select().Select("mid")

	assert.Equal(t,
		`<fetch><entity name="account"><attribute name="zeta"/><attribute name="alpha"/><attribute name="mid"/></entity></fetch>`,
		mustBuild(t, b))
}

func TestSelect_ManyAttributesInOrder(t *testing.T) {
	b := New("account")
	var want strings.Builder
	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("attr%03d", 99-i)
		b.Select(name)
		want.WriteString(`<attribute name="` + name + `"/>`)
	}

	assert.Equal(t, `<fetch><entity name="account">`+want.String()+`</entity></fetch>`, mustBuild(t, b))
}

func TestSelect_RejectsWholeCallAtomically(t *testing.T) {
	b := New("account").Select("name")
	b.Select("first", " ", "last")

	requireValidationField(t, b.Err(), "attribute")
	require.Len(t, b.Query().Attributes, 1)
	assert.Equal(t, "name", b.Query().Attributes[0].Name)
}

func TestSelectAs(t *testing.T) {
	b := New("account").SelectAs("accountid", "id")
	assert.Equal(t, `<fetch><entity name="account"><attribute name="accountid" alias="id"/></entity></fetch>`, mustBuild(t, b))

	requireValidationField(t, New("account").SelectAs("accountid", "").Err(), "alias")
	requireValidationField(t, New("account").SelectAs("", "id").Err(), "attribute")
}

func TestCount_DefaultsToPrimaryKey(t *testing.T) {
	out := mustBuild(t, New("account").Count("", ""))
	assert.Equal(t, `<fetch><entity name="account"><attribute name="accountid" aggregate="count"/></entity></fetch>`, out)
}

func TestAggregates(t *testing.T) {
	b := New("opportunity").
		Count("opportunityid", "n").
		CountColumn("estimatedvalue", "").
		Sum("estimatedvalue", "total").
		Avg("estimatedvalue", "average").
		Min("closeprobability", "").
		Max("closeprobability", "best")

	assert.Equal(t,
		`<fetch><entity name="opportunity">`+
			`<attribute name="opportunityid" alias="n" aggregate="count"/>`+
			`<attribute name="estimatedvalue" aggregate="countcolumn"/>`+
			`<attribute name="estimatedvalue" alias="total" aggregate="sum"/>`+
			`<attribute name="estimatedvalue" alias="average" aggregate="avg"/>`+
			`<attribute name="closeprobability" aggregate="min"/>`+
			`<attribute name="closeprobability" alias="best" aggregate="max"/>`+
			`</entity></fetch>`,
		mustBuild(t, b))
}

func TestAggregate_ByName(t *testing.T) {
	out := mustBuild(t, New("account").Aggregate("revenue", "sum", "r"))
	assert.Contains(t, out, `<attribute name="revenue" alias="r" aggregate="sum"/>`)

	b := New("account").Aggregate("revenue", "median", "")
	requireValidationField(t, b.Err(), "aggregate")
	assert.Empty(t, b.Query().Attributes)
}

func TestSum_RequiresAttribute(t *testing.T) {
	requireValidationField(t, New("account").Sum("", "x").Err(), "attribute")
	requireValidationField(t, New("account").Sum("revenue", "  ").Err(), "alias")
}

func TestWhere_FlatAndGroup(t *testing.T) {
	b := New("account").
		Where("statecode", "eq", 0).
		Where("name", "like", "Contoso%").
		Where("telephone1", "null", nil)

	assert.Equal(t,
		`<fetch><entity name="account"><filter type="and">`+
			`<condition attribute="statecode" operator="eq" value="0"/>`+
			`<condition attribute="name" operator="like" value="Contoso%"/>`+
			`<condition attribute="telephone1" operator="null"/>`+
			`</filter></entity></fetch>`,
		mustBuild(t, b))
}

func TestWhere_ValueRendering(t *testing.T) {
	testCases := []struct {
		name  string
		value any
		want  string
	}{
		{"zero", 0, `value="0"`},
		{"false", false, `value="false"`},
		{"empty string", "", `value=""`},
		{"escaped", `"A" & <B>`, `value="&quot;A&quot; &amp; &lt;B&gt;"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			out := mustBuild(t, New("account").Where("a", "eq", tc.value))
			assert.Contains(t, out, tc.want)
		})
	}

	out := mustBuild(t, New("account").Where("a", "not-null", nil))
	assert.NotContains(t, out, "value=")
}

func TestWhere_OperatorValidation(t *testing.T) {
	for _, op := range fetchir.Operators {
		b := New("account").Where("a", string(op), 1)
		assert.NoError(t, b.Err(), op)
	}

	for _, op := range []string{"bogus-operator", "", "Equals", "=="} {
		b := New("account").Where("a", op, 1)
		requireValidationField(t, b.Err(), "operator")
		assert.Nil(t, b.Query().Filter, "failed where must not create the filter group")
	}
}

func TestWhere_EmptyAttribute(t *testing.T) {
	requireValidationField(t, New("account").Where("", "eq", 1).Err(), "attribute")
}

func TestFilter_NestedGroups(t *testing.T) {
	b := New("account").
		Where("statecode", "eq", 0).
		Filter(fetchir.Or(
			fetchir.Cond("city", fetchir.OpEq, "Redmond"),
			fetchir.And(
				fetchir.Cond("city", fetchir.OpEq, "Seattle"),
				fetchir.Cond("revenue", fetchir.OpGt, 1000000),
			),
		))

	assert.Equal(t,
		`<fetch><entity name="account"><filter type="and">`+
			`<condition attribute="statecode" operator="eq" value="0"/>`+
			`<filter type="or">`+
			`<condition attribute="city" operator="eq" value="Redmond"/>`+
			`<filter type="and">`+
			`<condition attribute="city" operator="eq" value="Seattle"/>`+
			`<condition attribute="revenue" operator="gt" value="1000000"/>`+
			`</filter></filter></filter></entity></fetch>`,
		mustBuild(t, b))
}

func TestFilter_InvalidGroupRejected(t *testing.T) {
	b := New("account").Filter(fetchir.Or(fetchir.Cond("city", "equals", "x")))

	requireValidationField(t, b.Err(), "operator")
	assert.Nil(t, b.Query().Filter)
}

func TestFilter_LaterWritesToGroupDoNotLeak(t *testing.T) {
	inner := fetchir.And(fetchir.Cond("city", fetchir.OpEq, "Oslo"))
	g := fetchir.Or(fetchir.Cond("name", fetchir.OpEq, "a"), inner, &inner)
	b := New("account").Filter(g)
	require.NoError(t, b.Err())

	g.Conditions[0] = fetchir.Cond("", "bogus", nil)
	inner.Conditions[0] = fetchir.Cond("", "bogus", nil)

	out := mustBuild(t, b)
	assert.Equal(t,
		`<fetch><entity name="account"><filter type="and"><filter type="or">`+
			`<condition attribute="name" operator="eq" value="a"/>`+
			`<filter type="and"><condition attribute="city" operator="eq" value="Oslo"/></filter>`+
			`<filter type="and"><condition attribute="city" operator="eq" value="Oslo"/></filter>`+
			`</filter></filter></entity></fetch>`,
		out)
	assert.NotContains(t, out, "bogus")
}

func TestOrderBy(t *testing.T) {
	b := New("account").OrderBy("name", "").OrderBy("createdon", "desc").OrderBy("revenue", "asc")

	assert.Equal(t,
		`<fetch><entity name="account">`+
			`<order attribute="name" descending="false"/>`+
			`<order attribute="createdon" descending="true"/>`+
			`<order attribute="revenue" descending="false"/>`+
			`</entity></fetch>`,
		mustBuild(t, b))

	requireValidationField(t, New("account").OrderBy("name", "up").Err(), "order")
	requireValidationField(t, New("account").OrderBy("", "asc").Err(), "attribute")
}

func TestTop_Range(t *testing.T) {
	testCases := []struct {
		top   int
		valid bool
	}{
		{0, false},
		{1, true},
		{5000, true},
		{5001, false},
		{-1, false},
	}

	for _, tc := range testCases {
		t.Run(fmt.Sprint(tc.top), func(t *testing.T) {
			b := New("account").Top(tc.top)
			if tc.valid {
				require.NoError(t, b.Err())
				assert.Equal(t, fmt.Sprintf(`<fetch top="%d"><entity name="account"></entity></fetch>`, tc.top), mustBuild(t, b))
				return
			}
			requireValidationField(t, b.Err(), "top")
			assert.Zero(t, b.Query().Top)
		})
	}
}

func TestTop_LastCallWins(t *testing.T) {
	assert.Equal(t, `<fetch top="3"><entity name="account"></entity></fetch>`, mustBuild(t, New("account").Top(10).Top(3)))
}

func TestPage(t *testing.T) {
	out := mustBuild(t, New("account").Page(1))
	assert.Equal(t, `<fetch page="1" count="50"><entity name="account"></entity></fetch>`, out)

	out = mustBuild(t, New("account").PageWithSize(3, 5000))
	assert.Equal(t, `<fetch page="3" count="5000"><entity name="account"></entity></fetch>`, out)

	requireValidationField(t, New("account").PageWithSize(0, 10).Err(), "page")
	requireValidationField(t, New("account").PageWithSize(1, 0).Err(), "count")
	requireValidationField(t, New("account").PageWithSize(1, 5001).Err(), "count")
	requireValidationField(t, New("account").Page(0).Err(), "page")
}

func TestDistinct(t *testing.T) {
	out := mustBuild(t, New("account").Distinct().Top(5).Page(2))
	assert.Equal(t, `<fetch distinct="true" top="5" page="2" count="50"><entity name="account"></entity></fetch>`, out)
}

// GroupBy is accepted and validated but is deliberately a no-op in the
// rendered document: no grouping marker is emitted on any attribute.
func TestGroupBy_ValidatedButNotRendered(t *testing.T) {
	withGroup := mustBuild(t, New("account").Count("", "n").Select("industrycode").GroupBy("industrycode"))
	without := mustBuild(t, New("account").Count("", "n").Select("industrycode"))

	assert.Equal(t, without, withGroup)
	assert.NotContains(t, withGroup, "groupby")

	requireValidationField(t, New("account").GroupBy(" ").Err(), "attribute")
}

func TestFailedCall_LeavesModelUnchangedAndSticks(t *testing.T) {
	b := New("account").Select("name").Where("statecode", "eq", 0).Top(10)
	before := mustBuild(t, b)

	b.Top(0)
	firstErr := b.Err()
	requireValidationField(t, firstErr, "top")

	// Later calls are no-ops, valid or not.
	b.Select("accountnumber").Where("x", "bogus", 1).Distinct()
	assert.Same(t, firstErr, b.Err())

	_, err := b.Build()
	assert.Same(t, firstErr, err)

	assert.Equal(t, 10, b.Query().Top)
	assert.Len(t, b.Query().Attributes, 1)
	assert.False(t, b.Query().Distinct)

	rendered, renderErr := b.renderer.Render(b.Query())
	require.NoError(t, renderErr)
	assert.Equal(t, before, rendered)
}

func TestBuild_IsIdempotent(t *testing.T) {
	b := New("account").
		Select("name").
		Where("statecode", "eq", 0).
		OrderBy("name", "desc").
		Join("contact", "accountid", "parentcustomerid").Select("fullname").End().
		Top(20)

	first := mustBuild(t, b)
	second := mustBuild(t, b)
	assert.Equal(t, first, second)
}

func TestBuild_RenderFailureIsQueryBuildError(t *testing.T) {
	b := New("account").Select("name")
	// Bypass validated calls to corrupt the tree.
	b.Query().Links = append(b.Query().Links, nil)

	_, err := b.Build()
	require.Error(t, err)

	var buildErr *fetchir.QueryBuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Contains(t, buildErr.Message, "nil link entity")
	assert.Equal(t, fetchir.ErrCodeQueryBuild, fetchir.CodeOf(err))
	assert.NoError(t, b.Err(), "render failures are not recorded as validation errors")
}

func TestAddLink_NestedLinks(t *testing.T) {
	b := New("account").AddLink(&fetchir.LinkEntity{
		Name: "contact", From: "parentcustomerid", To: "accountid",
		Links: []*fetchir.LinkEntity{{Name: "task", From: "regardingobjectid", To: "contactid", LinkType: fetchir.LinkOuter}},
	})

	assert.Equal(t,
		`<fetch><entity name="account">`+
			`<link-entity name="contact" from="parentcustomerid" to="accountid">`+
			`<link-entity name="task" from="regardingobjectid" to="contactid" link-type="outer"></link-entity>`+
			`</link-entity></entity></fetch>`,
		mustBuild(t, b))
}

func TestAddLink_LaterWritesToLinkDoNotLeak(t *testing.T) {
	filter := fetchir.And(fetchir.Cond("statecode", fetchir.OpEq, 0))
	link := &fetchir.LinkEntity{
		Name: "contact", From: "parentcustomerid", To: "accountid",
		Attributes: []fetchir.Attribute{{Name: "fullname"}},
		Filter:     &filter,
		Links:      []*fetchir.LinkEntity{{Name: "task", From: "regardingobjectid", To: "contactid"}},
	}
	b := New("account").AddLink(link)
	require.NoError(t, b.Err())

	link.Name = ""
	link.Attributes[0].Name = ""
	filter.Conditions[0] = fetchir.Cond("", "bogus", nil)
	link.Links[0].From = ""

	assert.Equal(t,
		`<fetch><entity name="account">`+
			`<link-entity name="contact" from="parentcustomerid" to="accountid">`+
			`<attribute name="fullname"/>`+
			`<filter type="and"><condition attribute="statecode" operator="eq" value="0"/></filter>`+
			`<link-entity name="task" from="regardingobjectid" to="contactid"></link-entity>`+
			`</link-entity></entity></fetch>`,
		mustBuild(t, b))
}

func TestAddLink_Invalid(t *testing.T) {
	b := New("account").AddLink(&fetchir.LinkEntity{
		Name: "contact", From: "parentcustomerid", To: "accountid",
		Links: []*fetchir.LinkEntity{{Name: "task", From: "", To: "contactid"}},
	})
	requireValidationField(t, b.Err(), "attribute")
	assert.Empty(t, b.Query().Links)

	requireValidationField(t, New("account").AddLink(nil).Err(), "link")
}

func TestBuilder_LogsRejectedCalls(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "error", Enabled: true, Output: &buf})

	New("account", WithLogger(logger)).Select("name").Top(9999)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "top", entry["op"])
	assert.Equal(t, "account", entry["entity"])
	assert.Contains(t, entry["error"], "between 1 and 5000")
}

func TestBuilder_DebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: "debug", Enabled: true, Output: &buf})

	_, err := New("account", WithLogger(logger)).Select("name").GroupBy("name").Build()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "builder created")
	assert.Contains(t, out, "attributes selected")
	assert.Contains(t, out, "groupBy accepted without rendered effect")
	assert.Contains(t, out, "fetch query built")
}

func TestWithLogger_NilKeepsDefault(t *testing.T) {
	b := New("account", WithLogger(nil))
	require.NotNil(t, b.log)
	assert.Equal(t, "account", b.Entity())
}

func TestBuild_FullChainGolden(t *testing.T) {
	b := New("account").
		Distinct().
		Select("name", "accountnumber").
		SelectAs("accountid", "id").
		Count("", "contacts").
		Where("statecode", "eq", 0).
		Where("name", "like", "Fourth Coffee & <Co>%").
		Filter(fetchir.Or(
			fetchir.Cond("address1_city", fetchir.OpEq, "Redmond"),
			fetchir.Cond("address1_city", fetchir.OpEq, "O'Fallon"),
		)).
		OrderBy("name", "asc").
		OrderBy("createdon", "desc").
		Join("contact", "accountid", "parentcustomerid", WithAlias("c"), WithLinkType("outer")).
		Select("fullname").
		SelectAs("emailaddress1", "email").
		Where("statecode", "eq", 0).
		End().
		Join("opportunity", "accountid", "customerid").
		Where("estimatedvalue", "ge", 5000).
		End().
		PageWithSize(2, 25)

	testutil.AssertGolden(t, "full_chain", []byte(mustBuild(t, b)))
}
