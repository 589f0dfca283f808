package scope

import "testing"

func TestBuildSortsAndDedupes(t *testing.T) {
	cases := []struct {
		name  string
		scope Scope
		want  string
	}{
		{name: "ordered", scope: Scope{Websites: []int{1, 2}, CustomerGroups: []int{3}}, want: "w[1,2]:cg[3]"},
		{name: "unordered with duplicates", scope: Scope{Websites: []int{2, 1, 2}, CustomerGroups: []int{3, 3}}, want: "w[1,2]:cg[3]"},
		{name: "numeric not lexical", scope: Scope{Websites: []int{10, 9}, CustomerGroups: []int{100, 20}}, want: "w[9,10]:cg[20,100]"},
		{name: "empty", scope: Scope{}, want: "w[]:cg[]"},
		{name: "groups only", scope: Scope{CustomerGroups: []int{4}}, want: "w[]:cg[4]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Build(tc.scope); got != tc.want {
				t.Fatalf("Build() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestBuildIsPermutationInvariant(t *testing.T) {
	a := Scope{Websites: []int{3, 1, 2}, CustomerGroups: []int{7, 5}}
	b := Scope{Websites: []int{2, 3, 1, 1}, CustomerGroups: []int{5, 7, 5}}
	if Build(a) != Build(b) {
		t.Fatalf("expected equal ids, got %q and %q", Build(a), Build(b))
	}
	if a.ID() != Build(a) {
		t.Fatalf("ID() should match Build()")
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := Scope{Websites: []int{2, 1}}
	out := in.Normalize()
	if in.Websites[0] != 2 {
		t.Fatalf("input was mutated: %v", in.Websites)
	}
	if out.Websites[0] != 1 || len(out.CustomerGroups) != 0 {
		t.Fatalf("unexpected normalized scope %+v", out)
	}
}

func TestScopePredicates(t *testing.T) {
	if !(Scope{}).IsEmpty() {
		t.Fatal("zero scope should be empty")
	}
	s := Scope{Websites: []int{1}}
	if s.IsEmpty() || !s.HasWebsites() || s.HasCustomerGroups() {
		t.Fatalf("unexpected predicates for %+v", s)
	}
}
