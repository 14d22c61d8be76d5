package orchestrator

import (
	"sort"

	"controlling_camera/internal/models"
)

// propertyCache holds the last confirmed value of every observed property.
// It is owned by the control loop; nothing else mutates it.
type propertyCache struct {
	props map[models.PropertyCode]models.Property
}

func newPropertyCache() *propertyCache {
	return &propertyCache{props: make(map[models.PropertyCode]models.Property)}
}

func (c *propertyCache) Put(p models.Property) {
	c.props[p.Code] = p
}

func (c *propertyCache) Get(code models.PropertyCode) (models.Property, bool) {
	p, ok := c.props[code]
	return p, ok
}

func (c *propertyCache) Len() int { return len(c.props) }

func (c *propertyCache) Clear() {
	c.props = make(map[models.PropertyCode]models.Property)
}

// Snapshot returns a copy of all properties ordered by code.
func (c *propertyCache) Snapshot() []models.Property {
	out := make([]models.Property, 0, len(c.props))
	for _, p := range c.props {
		p.Allowed = append([]int64(nil), p.Allowed...)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
