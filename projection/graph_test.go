package projection

import (
	"reflect"
	"sort"
	"testing"
)

// addAll feeds classes (already sorted by length) into a fresh forest.
func addAll(classes [][]byte) *forest {
	f := &forest{byFirst: make(map[byte][]int)}
	for i, class := range classes {
		f.add(class, ClassID(i))
	}
	return f
}

func (f *forest) childClasses(node int32) [][]byte {
	var out [][]byte
	for _, c := range f.nodes[node].children {
		out = append(out, f.nodes[c].class)
	}
	sort.Slice(out, func(i, j int) bool { return compareBytes(out[i], out[j]) < 0 })
	return out
}

func TestForest_SharedPrefixes(t *testing.T) {
	f := addAll([][]byte{
		{1},
		{2},
		{1, 2},
		{1, 3},
		{1, 2, 3},
	})

	if len(f.graphs) != 2 {
		t.Fatalf("got %d graphs, want 2", len(f.graphs))
	}

	rootA := f.graphs[0].root
	if !reflect.DeepEqual(f.nodes[rootA].class, []byte{1}) {
		t.Fatalf("first root class = %v, want [1]", f.nodes[rootA].class)
	}
	children := f.childClasses(rootA)
	want := [][]byte{{1, 2}, {1, 2, 3}, {1, 3}}
	if !reflect.DeepEqual(children, want) {
		t.Errorf("children of [1] = %v, want %v", children, want)
	}

	// [1 2 3] arrives after the spine moved on to [1 3]; the upward walk
	// from [1 3] reaches the root first, so [1 2] stays a leaf.
	var node12 int32 = -1
	for i, n := range f.nodes {
		if reflect.DeepEqual(n.class, []byte{1, 2}) {
			node12 = int32(i)
		}
	}
	if node12 < 0 {
		t.Fatal("node [1 2] not found")
	}
	if got := f.childClasses(node12); !reflect.DeepEqual(got, [][]byte(nil)) {
		t.Errorf("children of [1 2] = %v, want none", got)
	}
}

func TestForest_NewGraphPerFirstClass(t *testing.T) {
	f := addAll([][]byte{
		{1, 2},
		{1, 3},
	})
	// Neither class is a prefix of the other: two graphs sharing a
	// first byte class.
	if len(f.graphs) != 2 {
		t.Fatalf("got %d graphs, want 2", len(f.graphs))
	}
	if len(f.byFirst[1]) != 2 {
		t.Errorf("byFirst[1] has %d graphs, want 2", len(f.byFirst[1]))
	}
}

func TestForest_SpineReattachment(t *testing.T) {
	// After descending into [1 2]/[1 2 3], a sibling [1 4] must attach
	// to the root, not to the deep spine.
	f := addAll([][]byte{
		{1},
		{1, 2},
		{1, 2, 3},
		{1, 4},
	})
	root := f.graphs[0].root
	children := f.childClasses(root)
	want := [][]byte{{1, 2}, {1, 4}}
	if !reflect.DeepEqual(children, want) {
		t.Errorf("children of [1] = %v, want %v", children, want)
	}
}
