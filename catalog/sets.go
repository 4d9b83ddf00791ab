package catalog

import (
	"sort"
	"strings"
)

// The repository stores multi-valued attributes as comma-joined
// strings. These helpers keep set semantics on top of that encoding:
// parse on read, union on merge, emit sorted and deduplicated on write.

// SplitSet parses a comma-joined attribute into its members, dropping
// empty segments and surrounding whitespace.
func SplitSet(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	var members []string
	for _, v := range strings.Split(value, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			members = append(members, v)
		}
	}
	return members
}

// JoinSet emits members sorted and deduplicated, comma-joined.
func JoinSet(members []string) string {
	uniq := map[string]bool{}
	for _, m := range members {
		m = strings.TrimSpace(m)
		if m != "" {
			uniq[m] = true
		}
	}
	out := make([]string, 0, len(uniq))
	for m := range uniq {
		out = append(out, m)
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

// UnionSet merges two member lists, preserving set semantics.
func UnionSet(a, b []string) []string {
	joined := JoinSet(append(append([]string{}, a...), b...))
	return SplitSet(joined)
}

// SameSet reports whether two member lists contain the same members,
// regardless of order or duplication.
func SameSet(a, b []string) bool {
	return JoinSet(a) == JoinSet(b)
}

// ContainsAll reports whether every member of sub is in super.
func ContainsAll(super, sub []string) bool {
	in := map[string]bool{}
	for _, m := range super {
		in[m] = true
	}
	for _, m := range sub {
		if !in[m] {
			return false
		}
	}
	return true
}
