package variant

import "testing"

func TestTopoSortOrdersDependenciesFirst(t *testing.T) {
	outputs := []Output{
		{Name: "app", Deps: []string{"libfoo"}},
		{Name: "libfoo", Deps: nil},
	}
	order, err := TopoSort(outputs)
	if err != nil {
		t.Fatalf("TopoSort: %v", err)
	}
	pos := map[string]int{}
	for i, n := range order {
		pos[n] = i
	}
	if pos["libfoo"] >= pos["app"] {
		t.Fatalf("order = %v, want libfoo before app", order)
	}
}

func TestTopoSortDetectsCycle(t *testing.T) {
	outputs := []Output{
		{Name: "a", Deps: []string{"b"}},
		{Name: "b", Deps: []string{"a"}},
	}
	if _, err := TopoSort(outputs); err == nil {
		t.Fatal("expected cycle error")
	}
}
