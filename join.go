package fetchxml

import (
	"github.com/roach88/fetchxml/fetchir"
	"github.com/roach88/fetchxml/logging"
)

// JoinBuilder is scoped to one link entity created by Builder.Join.
//
// It mutates only that link. Validation failures are recorded on the
// originating Builder, so Builder.Build reports them.
type JoinBuilder struct {
	parent *Builder
	link   *fetchir.LinkEntity
}

// JoinOption configures a link entity created by Join.
type JoinOption func(*joinConfig)

type joinConfig struct {
	alias       string
	hasAlias    bool
	linkType    string
	hasLinkType bool
}

// WithAlias sets the link entity alias.
func WithAlias(alias string) JoinOption {
	return func(c *joinConfig) {
		c.alias = alias
		c.hasAlias = true
	}
}

// WithLinkType sets the link type, inner or outer.
func WithLinkType(linkType string) JoinOption {
	return func(c *joinConfig) {
		c.linkType = linkType
		c.hasLinkType = true
	}
}

func newLink(entity, from, to string, opts []JoinOption) (*fetchir.LinkEntity, error) {
	var cfg joinConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := fetchir.ValidateEntityName(entity); err != nil {
		return nil, err
	}
	if err := fetchir.ValidateAttributeName(from); err != nil {
		return nil, err
	}
	if err := fetchir.ValidateAttributeName(to); err != nil {
		return nil, err
	}

	link := &fetchir.LinkEntity{Name: entity, From: from, To: to}
	if cfg.hasAlias {
		if err := fetchir.ValidateAlias(cfg.alias); err != nil {
			return nil, err
		}
		link.Alias = cfg.alias
	}
	if cfg.hasLinkType {
		lt, err := fetchir.ValidateLinkType(cfg.linkType)
		if err != nil {
			return nil, err
		}
		link.LinkType = lt
	}
	return link, nil
}

// Err returns the error recorded on the originating Builder.
func (j *JoinBuilder) Err() error {
	return j.parent.err
}

// Link returns the link entity being built. It is nil if Join failed.
func (j *JoinBuilder) Link() *fetchir.LinkEntity {
	return j.link
}

func (j *JoinBuilder) blocked() bool {
	return j.parent.err != nil || j.link == nil
}

// Select appends plain attributes to the link in call order.
func (j *JoinBuilder) Select(names ...string) *JoinBuilder {
	if j.blocked() {
		return j
	}
	attrs, err := plainAttributes(names)
	if err != nil {
		j.parent.fail("join.select", err)
		return j
	}
	j.link.Attributes = append(j.link.Attributes, attrs...)
	j.parent.log.Debug("link attributes selected", logging.Fields{"link": j.link.Name, "names": names})
	return j
}

// SelectAs appends an aliased attribute to the link.
func (j *JoinBuilder) SelectAs(name, alias string) *JoinBuilder {
	if j.blocked() {
		return j
	}
	attr, err := aliasedAttribute(name, alias)
	if err != nil {
		j.parent.fail("join.selectAs", err)
		return j
	}
	j.link.Attributes = append(j.link.Attributes, attr)
	return j
}

// Where appends a condition to the link's implicit top-level and-group.
func (j *JoinBuilder) Where(attribute, operator string, value any) *JoinBuilder {
	if j.blocked() {
		return j
	}
	cond, err := condition(attribute, operator, value)
	if err != nil {
		j.parent.fail("join.where", err)
		return j
	}
	j.link.Filter = appendFilterEntry(j.link.Filter, cond)
	return j
}

// Filter validates a hand-built group and appends it to the link's implicit
// top-level and-group.
func (j *JoinBuilder) Filter(group fetchir.FilterGroup) *JoinBuilder {
	if j.blocked() {
		return j
	}
	if err := fetchir.ValidateGroup(group); err != nil {
		j.parent.fail("join.filter", err)
		return j
	}
	j.link.Filter = appendFilterEntry(j.link.Filter, group.Clone())
	return j
}

// End returns the originating Builder.
func (j *JoinBuilder) End() *Builder {
	return j.parent
}
