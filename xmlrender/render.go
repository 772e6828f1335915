// Package xmlrender serializes a fetchir query tree to fetch XML text.
package xmlrender

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/fetchxml/fetchir"
)

// XMLRenderer renders fetchir queries to fetch XML.
//
// The renderer is stateless and performs no validation: it trusts that the
// tree was built through validated calls. Attributes, conditions, orders and
// links are written in insertion order. Output is all-or-nothing.
type XMLRenderer struct{}

// NewXMLRenderer creates a new XMLRenderer.
func NewXMLRenderer() *XMLRenderer {
	return &XMLRenderer{}
}

// Render converts q to a fetch XML document.
//
// Root attributes are written in the fixed order distinct, top, page, count.
// Inside <entity> the children are attributes, filter, orders, then links.
func (r *XMLRenderer) Render(q *fetchir.FetchQuery) (string, error) {
	if q == nil {
		return "", fmt.Errorf("cannot render nil query")
	}

	var b strings.Builder
	b.WriteString("<fetch")
	if q.Distinct {
		writeAttr(&b, "distinct", "true")
	}
	if q.Top > 0 {
		writeAttr(&b, "top", strconv.Itoa(q.Top))
	}
	if q.Page > 0 {
		writeAttr(&b, "page", strconv.Itoa(q.Page))
	}
	if q.Count > 0 {
		writeAttr(&b, "count", strconv.Itoa(q.Count))
	}
	b.WriteString(">")

	b.WriteString("<entity")
	writeAttr(&b, "name", q.Entity)
	b.WriteString(">")

	r.renderAttributes(&b, q.Attributes)

	if q.Filter != nil {
		if err := r.renderFilter(&b, *q.Filter); err != nil {
			return "", fmt.Errorf("render filter: %w", err)
		}
	}

	for _, o := range q.Orders {
		b.WriteString("<order")
		writeAttr(&b, "attribute", o.Attribute)
		writeAttr(&b, "descending", strconv.FormatBool(o.Descending()))
		b.WriteString("/>")
	}

	for i, link := range q.Links {
		if err := r.renderLink(&b, link); err != nil {
			return "", fmt.Errorf("render link %d: %w", i, err)
		}
	}

	b.WriteString("</entity></fetch>")
	return b.String(), nil
}

// renderAttributes writes self-closing <attribute/> elements.
func (r *XMLRenderer) renderAttributes(b *strings.Builder, attrs []fetchir.Attribute) {
	for _, a := range attrs {
		b.WriteString("<attribute")
		writeAttr(b, "name", a.Name)
		if a.Alias != "" {
			writeAttr(b, "alias", a.Alias)
		}
		if a.IsAggregate() {
			writeAttr(b, "aggregate", string(a.Aggregate))
		}
		b.WriteString("/>")
	}
}

// renderFilter writes a <filter> element, recursing into nested groups.
func (r *XMLRenderer) renderFilter(b *strings.Builder, g fetchir.FilterGroup) error {
	b.WriteString("<filter")
	writeAttr(b, "type", string(g.Type))
	b.WriteString(">")

	for _, entry := range g.Conditions {
		if err := r.renderEntry(b, entry); err != nil {
			return err
		}
	}

	b.WriteString("</filter>")
	return nil
}

// renderEntry dispatches on the sealed FilterEntry variants.
func (r *XMLRenderer) renderEntry(b *strings.Builder, entry fetchir.FilterEntry) error {
	switch e := entry.(type) {
	case fetchir.Condition:
		r.renderCondition(b, e)
	case *fetchir.Condition:
		if e == nil {
			return fmt.Errorf("nil condition in filter group")
		}
		r.renderCondition(b, *e)
	case fetchir.FilterGroup:
		return r.renderFilter(b, e)
	case *fetchir.FilterGroup:
		if e == nil {
			return fmt.Errorf("nil nested filter group")
		}
		return r.renderFilter(b, *e)
	default:
		return fmt.Errorf("unsupported filter entry type: %T", entry)
	}
	return nil
}

// renderCondition writes a self-closing <condition/>. The value attribute is
// omitted when the value is absent.
func (r *XMLRenderer) renderCondition(b *strings.Builder, c fetchir.Condition) {
	b.WriteString("<condition")
	writeAttr(b, "attribute", c.Attribute)
	writeAttr(b, "operator", string(c.Operator))
	if value, ok := FormatValue(c.Value); ok {
		writeAttr(b, "value", value)
	}
	b.WriteString("/>")
}

// renderLink writes a <link-entity> element. Children are always attributes,
// then filter, then nested links.
func (r *XMLRenderer) renderLink(b *strings.Builder, l *fetchir.LinkEntity) error {
	if l == nil {
		return fmt.Errorf("nil link entity")
	}

	b.WriteString("<link-entity")
	writeAttr(b, "name", l.Name)
	writeAttr(b, "from", l.From)
	writeAttr(b, "to", l.To)
	if l.Alias != "" {
		writeAttr(b, "alias", l.Alias)
	}
	if l.LinkType != "" {
		writeAttr(b, "link-type", string(l.LinkType))
	}
	b.WriteString(">")

	r.renderAttributes(b, l.Attributes)

	if l.Filter != nil {
		if err := r.renderFilter(b, *l.Filter); err != nil {
			return fmt.Errorf("link %s filter: %w", l.Name, err)
		}
	}

	for _, nested := range l.Links {
		if err := r.renderLink(b, nested); err != nil {
			return fmt.Errorf("link %s: %w", l.Name, err)
		}
	}

	b.WriteString("</link-entity>")
	return nil
}

// writeAttr writes ` name="value"` with value escaped.
func writeAttr(b *strings.Builder, name, value string) {
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(Escape(value))
	b.WriteByte('"')
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// Escape replaces the five XML-reserved characters with their entities.
func Escape(s string) string {
	return escaper.Replace(s)
}

// FormatValue converts a condition value to its canonical text form.
// It returns false when the value is absent (nil or a nil pointer).
//
// Strings are used verbatim and booleans and integers use their standard
// decimal form. Floats use the shortest digits that round-trip, in the
// notation encoding/json picks. time.Time uses RFC 3339 and fmt.Stringer
// values (such as uuid.UUID) use String().
func FormatValue(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case int8:
		return strconv.FormatInt(int64(val), 10), true
	case int16:
		return strconv.FormatInt(int64(val), 10), true
	case int32:
		return strconv.FormatInt(int64(val), 10), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case uint:
		return strconv.FormatUint(uint64(val), 10), true
	case uint8:
		return strconv.FormatUint(uint64(val), 10), true
	case uint16:
		return strconv.FormatUint(uint64(val), 10), true
	case uint32:
		return strconv.FormatUint(uint64(val), 10), true
	case uint64:
		return strconv.FormatUint(val, 10), true
	case float32:
		return formatFloat(float64(val), 32), true
	case float64:
		return formatFloat(val, 64), true
	case time.Time:
		return val.Format(time.RFC3339), true
	case fmt.Stringer:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return "", false
		}
		return val.String(), true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "", false
		}
		return FormatValue(rv.Elem().Interface())
	}
	return fmt.Sprint(v), true
}

// formatFloat writes the shortest round-trip digits of f. Magnitudes below
// 1e-6 or from 1e21 up switch to exponent form, as encoding/json does, so
// large integral values such as decoded JSON numbers stay in plain decimal.
func formatFloat(f float64, bits int) string {
	format := byte('f')
	if abs := math.Abs(f); abs != 0 {
		if bits == 64 && (abs < 1e-6 || abs >= 1e21) ||
			bits == 32 && (float32(abs) < 1e-6 || float32(abs) >= 1e21) {
			format = 'e'
		}
	}
	s := strconv.FormatFloat(f, format, -1, bits)
	if format == 'e' {
		// e-07 becomes e-7
		if n := len(s); n >= 4 && s[n-4] == 'e' && s[n-3] == '-' && s[n-2] == '0' {
			s = s[:n-2] + s[n-1:]
		}
	}
	return s
}
