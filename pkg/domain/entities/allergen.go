package entities

import (
	"sort"
	"strings"
)

// AllergenSet is a set of normalized allergen tags
type AllergenSet map[string]struct{}

// NewAllergenSet builds a set from tags, ignoring blanks
func NewAllergenSet(tags ...string) AllergenSet {
	set := make(AllergenSet, len(tags))
	set.Add(tags...)
	return set
}

// Add inserts tags into the set
func (s AllergenSet) Add(tags ...string) {
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		s[tag] = struct{}{}
	}
}

// Union inserts every tag of other into the set
func (s AllergenSet) Union(other AllergenSet) {
	for tag := range other {
		s[tag] = struct{}{}
	}
}

// Contains reports whether tag is present
func (s AllergenSet) Contains(tag string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(tag))]
	return ok
}

// IsSupersetOf reports whether every tag of other is in s
func (s AllergenSet) IsSupersetOf(other AllergenSet) bool {
	for tag := range other {
		if _, ok := s[tag]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the tags in lexical order
func (s AllergenSet) Sorted() []string {
	tags := make([]string, 0, len(s))
	for tag := range s {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}
