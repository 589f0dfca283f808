// Package scope derives price book identities from website and customer group membership.
package scope

import (
	"sort"
	"strconv"
	"strings"
)

// Scope is the set of websites and customer groups a price book applies to.
type Scope struct {
	Websites       []int `json:"websites"`
	CustomerGroups []int `json:"customer_groups"`
}

// Build returns the deterministic id for a scope: both sets deduplicated, sorted
// ascending and rendered as w[<csv>]:cg[<csv>].
func Build(s Scope) string {
	n := s.Normalize()
	var b strings.Builder
	b.WriteString("w[")
	writeCSV(&b, n.Websites)
	b.WriteString("]:cg[")
	writeCSV(&b, n.CustomerGroups)
	b.WriteString("]")
	return b.String()
}

// ID is shorthand for Build(s).
func (s Scope) ID() string {
	return Build(s)
}

// Normalize returns a copy with duplicates removed and ids sorted ascending.
func (s Scope) Normalize() Scope {
	return Scope{
		Websites:       uniqueSorted(s.Websites),
		CustomerGroups: uniqueSorted(s.CustomerGroups),
	}
}

func (s Scope) IsEmpty() bool {
	return !s.HasWebsites() && !s.HasCustomerGroups()
}

func (s Scope) HasWebsites() bool {
	return len(s.Websites) > 0
}

func (s Scope) HasCustomerGroups() bool {
	return len(s.CustomerGroups) > 0
}

func uniqueSorted(ids []int) []int {
	out := make([]int, 0, len(ids))
	seen := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func writeCSV(b *strings.Builder, ids []int) {
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
}
