package dbtypes

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// IDList persists a set of integer ids as a comma delimited text column ("1,2,3").
type IDList []int

func (l *IDList) Scan(src any) error {
	if src == nil {
		*l = IDList{}
		return nil
	}

	switch v := src.(type) {
	case string:
		return l.parseFromString(v)
	case []byte:
		return l.parseFromString(string(v))
	default:
		return fmt.Errorf("IDList: unsupported Scan type %T", src)
	}
}

func (l IDList) Value() (driver.Value, error) {
	return l.String(), nil
}

// String renders the ids in stored order joined by commas.
func (l IDList) String() string {
	if len(l) == 0 {
		return ""
	}
	parts := make([]string, 0, len(l))
	for _, id := range l {
		parts = append(parts, strconv.Itoa(id))
	}
	return strings.Join(parts, ",")
}

// Sorted returns an ascending copy without duplicates.
func (l IDList) Sorted() IDList {
	seen := make(map[int]struct{}, len(l))
	out := make(IDList, 0, len(l))
	for _, id := range l {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func (l *IDList) parseFromString(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		*l = IDList{}
		return nil
	}

	raw := strings.Split(s, ",")
	out := make([]int, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		id, err := strconv.Atoi(r)
		if err != nil {
			return fmt.Errorf("IDList: parse %q: %w", r, err)
		}
		out = append(out, id)
	}
	*l = IDList(out)
	return nil
}
