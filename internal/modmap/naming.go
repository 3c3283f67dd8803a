package modmap

import "strings"

// DefaultMaxDepth bounds how many dot-separated segments a hierarchical
// name may carry.
const DefaultMaxDepth = 8

// Resolver computes and validates hierarchical module names.
// All methods are pure: no I/O, no state beyond the depth bound.
type Resolver struct {
	maxDepth int
}

// NewResolver creates a Resolver with the given nesting bound.
// maxDepth <= 0 falls back to DefaultMaxDepth.
func NewResolver(maxDepth int) *Resolver {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{maxDepth: maxDepth}
}

// MaxDepth returns the configured nesting bound.
func (r *Resolver) MaxDepth() int { return r.maxDepth }

// HierarchicalName joins a parent path and a local name. An empty parent
// yields the name alone.
func (r *Resolver) HierarchicalName(name, parent string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// Parse splits a hierarchical name on its last dot. A name without a dot
// has an empty parent.
func (r *Resolver) Parse(hname string) (parent, name string) {
	i := strings.LastIndexByte(hname, '.')
	if i < 0 {
		return "", hname
	}
	return hname[:i], hname[i+1:]
}

// ValidName reports whether name is a valid local identifier segment:
// letters, digits and underscores, not starting with a digit, non-empty.
func (r *Resolver) ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i, c := range name {
		switch {
		case c == '_':
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// ValidHierarchicalName reports whether every dot segment of hname is a
// valid identifier and the total depth is within the configured bound.
// A segment may repeat an ancestor's name; only the full dotted path
// must be unique, and uniqueness is the collection's concern, not the
// resolver's.
func (r *Resolver) ValidHierarchicalName(hname string) bool {
	if hname == "" {
		return false
	}
	segments := strings.Split(hname, ".")
	if len(segments) > r.maxDepth {
		return false
	}
	for _, s := range segments {
		if !r.ValidName(s) {
			return false
		}
	}
	return true
}

// Depth returns the number of dot-separated segments in hname.
func (r *Resolver) Depth(hname string) int {
	if hname == "" {
		return 0
	}
	return strings.Count(hname, ".") + 1
}
