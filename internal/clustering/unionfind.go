package clustering

// unionFind is a disjoint-set over story hashes, realized as a
// contiguous arena indexed by a compact integer mapped from each hash
// via a small hash table, with union by rank and path compression
// (spec §9 design note).
type unionFind struct {
	index  map[string]int
	hashes []string
	parent []int
	rank   []int
	size   []int
}

func newUnionFind(hashes []string) *unionFind {
	uf := &unionFind{
		index:  make(map[string]int, len(hashes)),
		hashes: make([]string, 0, len(hashes)),
		parent: make([]int, 0, len(hashes)),
		rank:   make([]int, 0, len(hashes)),
		size:   make([]int, 0, len(hashes)),
	}
	for _, h := range hashes {
		uf.add(h)
	}
	return uf
}

// add registers a hash if not already present, returning its index.
func (uf *unionFind) add(hash string) int {
	if i, ok := uf.index[hash]; ok {
		return i
	}
	i := len(uf.hashes)
	uf.index[hash] = i
	uf.hashes = append(uf.hashes, hash)
	uf.parent = append(uf.parent, i)
	uf.rank = append(uf.rank, 0)
	uf.size = append(uf.size, 1)
	return i
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]] // path halving
		i = uf.parent[i]
	}
	return i
}

// union merges the components containing a and b (by hash). Returns
// false if either hash isn't registered.
func (uf *unionFind) union(a, b string) bool {
	ai, aok := uf.index[a]
	bi, bok := uf.index[b]
	if !aok || !bok {
		return false
	}
	ra, rb := uf.find(ai), uf.find(bi)
	if ra == rb {
		return true
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	uf.size[ra] += uf.size[rb]
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
	return true
}

// componentSize returns the number of hashes joined with hash
// (including itself).
func (uf *unionFind) componentSize(hash string) int {
	i, ok := uf.index[hash]
	if !ok {
		return 0
	}
	return uf.size[uf.find(i)]
}

// components returns every connected component as a slice of hashes.
func (uf *unionFind) components() [][]string {
	byRoot := make(map[int][]string)
	for i, h := range uf.hashes {
		root := uf.find(i)
		byRoot[root] = append(byRoot[root], h)
	}
	out := make([][]string, 0, len(byRoot))
	for _, members := range byRoot {
		out = append(out, members)
	}
	return out
}
