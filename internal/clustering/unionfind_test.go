package clustering

import "testing"

func TestUnionFindBasic(t *testing.T) {
	uf := newUnionFind([]string{"a", "b", "c", "d"})
	if uf.componentSize("a") != 1 {
		t.Fatalf("expected singleton component")
	}
	uf.union("a", "b")
	if uf.componentSize("a") != 2 || uf.componentSize("b") != 2 {
		t.Fatalf("expected component size 2 after union")
	}
	uf.union("c", "d")
	uf.union("b", "c")
	if uf.componentSize("a") != 4 {
		t.Fatalf("expected all four joined, got %d", uf.componentSize("a"))
	}
	groups := uf.components()
	if len(groups) != 1 || len(groups[0]) != 4 {
		t.Fatalf("expected single component of 4, got %v", groups)
	}
}

func TestUnionFindUnknownHash(t *testing.T) {
	uf := newUnionFind([]string{"a", "b"})
	if uf.union("a", "nope") {
		t.Fatalf("expected union with unregistered hash to fail")
	}
	if uf.componentSize("nope") != 0 {
		t.Fatalf("expected zero component size for unregistered hash")
	}
}
