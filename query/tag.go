package query

import "strings"

// ListID is the conventional tag ID for "the list of all X".
const ListID = "LIST"

// Tag is the unit of cache coherence.  Entries provide tags; mutations
// invalidate them.  Tags have nothing to do with request URLs.
type Tag struct {
	Type string
	ID   string
}

// TypeTag is a tag with no ID.  Invalidating it hits every entry that
// provides any tag of that type.
func TypeTag(t string) Tag {
	return Tag{Type: t}
}

func (t Tag) String() string {
	if t.ID == "" {
		return t.Type
	}
	return t.Type + ":" + t.ID
}

// Covers reports whether invalidating t affects an entry that provides p.
// A type-only tag covers every ID of its type; otherwise type and ID must
// both match.
func (t Tag) Covers(p Tag) bool {
	return t.Type == p.Type && (t.ID == "" || t.ID == p.ID)
}

func intersects(invalidated, provided []Tag) bool {
	for _, inv := range invalidated {
		for _, p := range provided {
			if inv.Covers(p) {
				return true
			}
		}
	}
	return false
}

func joinTags(tags []Tag) string {
	s := make([]string, len(tags))
	for i, t := range tags {
		s[i] = t.String()
	}
	return strings.Join(s, ",")
}
