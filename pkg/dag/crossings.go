package dag

import (
	"cmp"
	"slices"
)

// Crossings counts pairwise crossings of prerequisite links drawn between
// adjacent columns. order[c] lists the node IDs of column c from top to
// bottom. Links that span more than one column, corequisite links, and links
// touching nodes absent from order are ignored.
func Crossings(d *DAG, order [][]string) int {
	total := 0
	for c := 0; c+1 < len(order); c++ {
		total += ColumnCrossings(d, order[c], order[c+1])
	}
	return total
}

// ColumnCrossings counts crossings among the prerequisite links from nodes
// in right to their prerequisites in left. Both slices are ordered top to
// bottom.
//
// Two links (r1, l1) and (r2, l2) cross when r1 is above r2 and l1 is below
// l2, so the count is the number of inversions in the left positions once
// links are sorted by right position. Inversions are counted with a Fenwick
// tree in O(E log V).
func ColumnCrossings(d *DAG, left, right []string) int {
	if len(left) == 0 || len(right) == 0 {
		return 0
	}
	leftPos := make(map[string]int, len(left))
	for i, id := range left {
		leftPos[id] = i
	}

	type link struct{ right, left int }
	var links []link
	for i, id := range right {
		for _, target := range d.Prereqs(id) {
			if p, ok := leftPos[target]; ok {
				links = append(links, link{i, p})
			}
		}
	}
	if len(links) < 2 {
		return 0
	}
	slices.SortFunc(links, func(a, b link) int {
		return cmp.Or(cmp.Compare(a.right, b.right), cmp.Compare(a.left, b.left))
	})

	tree := make([]int, len(left)+1)
	crossings := 0
	for seen, l := range links {
		atMost := 0
		for i := l.left + 1; i > 0; i -= i & -i {
			atMost += tree[i]
		}
		crossings += seen - atMost
		for i := l.left + 1; i < len(tree); i += i & -i {
			tree[i]++
		}
	}
	return crossings
}
