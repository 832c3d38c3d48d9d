package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vsinha/mrp-aps/pkg/domain/entities"
)

// CyclicBOMError reports a bill of material that contains itself
type CyclicBOMError struct {
	Item entities.ItemID   // first item found twice on the open path
	Path []entities.ItemID // open path from the root, ending with Item
}

func (e *CyclicBOMError) Error() string {
	parts := make([]string, len(e.Path))
	for i, p := range e.Path {
		parts[i] = string(p)
	}
	return fmt.Sprintf("cyclic bom at %s: %s", e.Item, strings.Join(parts, " -> "))
}

// BOMGraph is the parent -> component adjacency of the current bills of material
type BOMGraph struct {
	children map[entities.ItemID][]entities.ItemID
	parents  map[entities.ItemID][]entities.ItemID
}

// NewBOMGraph builds the graph; component order follows BOM line order
func NewBOMGraph(boms []*entities.BillOfMaterial) *BOMGraph {
	g := &BOMGraph{
		children: make(map[entities.ItemID][]entities.ItemID, len(boms)),
		parents:  make(map[entities.ItemID][]entities.ItemID),
	}
	for _, bom := range boms {
		for _, c := range bom.Components {
			g.children[bom.ParentID] = append(g.children[bom.ParentID], c.ItemID)
			g.parents[c.ItemID] = append(g.parents[c.ItemID], bom.ParentID)
		}
	}
	return g
}

// Children returns the direct components of item
func (g *BOMGraph) Children(item entities.ItemID) []entities.ItemID {
	return g.children[item]
}

// Parents returns the items whose BOM lists item as a component
func (g *BOMGraph) Parents(item entities.ItemID) []entities.ItemID {
	return g.parents[item]
}

type stackFrame struct {
	item  entities.ItemID
	level int
	next  int
}

// LowLevelCodes assigns every item reachable from roots its low-level code: roots start
// at 0 and a component sits one below the deepest parent it appears under. The walk uses
// an explicit stack and the set of items on the open path; reaching an open ancestor
// returns a *CyclicBOMError naming it. Roots are walked in ascending id order so the
// reported item is deterministic.
func (g *BOMGraph) LowLevelCodes(roots []entities.ItemID) (map[entities.ItemID]int, error) {
	ordered := append([]entities.ItemID(nil), roots...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })

	codes := make(map[entities.ItemID]int)
	onPath := make(map[entities.ItemID]bool)

	for _, root := range ordered {
		if _, seen := codes[root]; seen {
			continue
		}
		codes[root] = 0
		stack := []stackFrame{{item: root}}
		onPath[root] = true

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := g.children[top.item]
			if top.next >= len(children) {
				onPath[top.item] = false
				stack = stack[:len(stack)-1]
				continue
			}
			child := children[top.next]
			top.next++

			if onPath[child] {
				path := make([]entities.ItemID, 0, len(stack)+1)
				for _, f := range stack {
					path = append(path, f.item)
				}
				return nil, &CyclicBOMError{Item: child, Path: append(path, child)}
			}

			level := top.level + 1
			if current, seen := codes[child]; seen && current >= level {
				continue
			}
			codes[child] = level
			onPath[child] = true
			stack = append(stack, stackFrame{item: child, level: level})
		}
	}

	return codes, nil
}

// IndependentTrees partitions the given items into groups that share no BOM ancestry.
// Each group is sorted by (low-level code, item id); groups are ordered by their first item.
func (g *BOMGraph) IndependentTrees(codes map[entities.ItemID]int) [][]entities.ItemID {
	parent := make(map[entities.ItemID]entities.ItemID, len(codes))
	var find func(entities.ItemID) entities.ItemID
	find = func(x entities.ItemID) entities.ItemID {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for item := range codes {
		parent[item] = item
	}
	for item := range codes {
		for _, child := range g.children[item] {
			if _, ok := codes[child]; !ok {
				continue
			}
			a, b := find(item), find(child)
			if a != b {
				if a < b {
					parent[b] = a
				} else {
					parent[a] = b
				}
			}
		}
	}

	groups := make(map[entities.ItemID][]entities.ItemID)
	for item := range codes {
		r := find(item)
		groups[r] = append(groups[r], item)
	}

	trees := make([][]entities.ItemID, 0, len(groups))
	for _, items := range groups {
		SortByLowLevelCode(items, codes)
		trees = append(trees, items)
	}
	sort.Slice(trees, func(i, j int) bool { return trees[i][0] < trees[j][0] })
	return trees
}

// SortByLowLevelCode orders items by ascending code, then id
func SortByLowLevelCode(items []entities.ItemID, codes map[entities.ItemID]int) {
	sort.Slice(items, func(i, j int) bool {
		if codes[items[i]] != codes[items[j]] {
			return codes[items[i]] < codes[items[j]]
		}
		return items[i] < items[j]
	})
}
