// Package identifier mints document ids. Ids come from the UUID space with a
// stable namespace prefix, wide enough that accidental collision across the
// document population is negligible without any global uniqueness check.
package identifier

import "github.com/google/uuid"

const defaultPrefix = "doc"

// Generator produces collision-resistant document ids.
type Generator struct {
	prefix string
}

// NewGenerator returns a Generator using the given namespace prefix, or the
// default "doc" prefix when empty.
func NewGenerator(prefix string) *Generator {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Generator{prefix: prefix}
}

// NewID returns a fresh id shaped "<prefix>-<uuid>". Each call is
// independent; the same bytes uploaded twice get two distinct ids.
func (g *Generator) NewID() string {
	return g.prefix + "-" + uuid.NewString()
}
