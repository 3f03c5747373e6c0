package move

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tag classifies a move by intention (lethal, grapple, ranged, ...).
type Tag int

const (
	TagMelee Tag = iota + 1
	TagRanged
	TagLethal
	TagNonLethal
	TagGrapple
	TagLimbLock
	TagStrangle
	TagTrip
	TagDefensive
	TagFinisher
	TagClinch
	TagWard
	TagFlee
	TagAim
	TagUnarmed
)

var tagNames = map[Tag]string{
	TagMelee:     "melee",
	TagRanged:    "ranged",
	TagLethal:    "lethal",
	TagNonLethal: "nonlethal",
	TagGrapple:   "grapple",
	TagLimbLock:  "limb_lock",
	TagStrangle:  "strangle",
	TagTrip:      "trip",
	TagDefensive: "defensive",
	TagFinisher:  "finisher",
	TagClinch:    "clinch",
	TagWard:      "ward",
	TagFlee:      "flee",
	TagAim:       "aim",
	TagUnarmed:   "unarmed",
}

func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return fmt.Sprintf("tag(%d)", int(t))
}

// ParseTag resolves a tag by its name, ignoring case and surrounding space.
func ParseTag(s string) (Tag, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for t, name := range tagNames {
		if name == want {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown intention tag %q", s)
}

// TagSet is a set of intention tags. The zero value is an empty set ready to read;
// use NewTagSet or Add on a non-nil set to write.
type TagSet map[Tag]struct{}

// NewTagSet builds a set from the given tags.
func NewTagSet(tags ...Tag) TagSet {
	s := make(TagSet, len(tags))
	for _, t := range tags {
		s[t] = struct{}{}
	}
	return s
}

func (s TagSet) Has(t Tag) bool {
	_, ok := s[t]
	return ok
}

func (s TagSet) Len() int { return len(s) }

func (s TagSet) IsEmpty() bool { return len(s) == 0 }

// Add inserts tags in place.
func (s TagSet) Add(tags ...Tag) {
	for _, t := range tags {
		s[t] = struct{}{}
	}
}

// Union returns a new set holding the tags of both sets.
func (s TagSet) Union(o TagSet) TagSet {
	out := make(TagSet, len(s)+len(o))
	for t := range s {
		out[t] = struct{}{}
	}
	for t := range o {
		out[t] = struct{}{}
	}
	return out
}

// Intersect returns a new set of tags present in both sets.
func (s TagSet) Intersect(o TagSet) TagSet {
	out := make(TagSet)
	for t := range s {
		if o.Has(t) {
			out[t] = struct{}{}
		}
	}
	return out
}

// Subtract returns a new set of tags in s that are not in o.
func (s TagSet) Subtract(o TagSet) TagSet {
	out := make(TagSet)
	for t := range s {
		if !o.Has(t) {
			out[t] = struct{}{}
		}
	}
	return out
}

// Intersects reports whether the sets share at least one tag.
func (s TagSet) Intersects(o TagSet) bool {
	for t := range s {
		if o.Has(t) {
			return true
		}
	}
	return false
}

// ContainsAll reports whether every tag of o is in s. An empty o is always contained.
func (s TagSet) ContainsAll(o TagSet) bool {
	for t := range o {
		if !s.Has(t) {
			return false
		}
	}
	return true
}

func (s TagSet) Equal(o TagSet) bool {
	return len(s) == len(o) && s.ContainsAll(o)
}

// Clone returns an independent copy.
func (s TagSet) Clone() TagSet {
	return s.Union(nil)
}

// Slice returns the tags in ascending order.
func (s TagSet) Slice() []Tag {
	out := make([]Tag, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	slices.Sort(out)
	return out
}

// Names returns the tag names in ascending tag order.
func (s TagSet) Names() []string {
	tags := s.Slice()
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.String()
	}
	return out
}

func (s TagSet) String() string {
	return "{" + strings.Join(s.Names(), ",") + "}"
}

// ParseTagSet builds a set from tag names.
func ParseTagSet(names []string) (TagSet, error) {
	out := make(TagSet, len(names))
	for _, n := range names {
		t, err := ParseTag(n)
		if err != nil {
			return nil, err
		}
		out[t] = struct{}{}
	}
	return out, nil
}

// MarshalJSON encodes the set as a sorted list of tag names.
func (s TagSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

func (s *TagSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("failed to unmarshal tag set: %w", err)
	}
	parsed, err := ParseTagSet(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s TagSet) MarshalYAML() (interface{}, error) {
	return s.Names(), nil
}

func (s *TagSet) UnmarshalYAML(value *yaml.Node) error {
	var names []string
	if err := value.Decode(&names); err != nil {
		return fmt.Errorf("failed to decode tag set: %w", err)
	}
	parsed, err := ParseTagSet(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
