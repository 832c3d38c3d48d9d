package services

import "github.com/vsinha/mrp-aps/pkg/domain/entities"

// CriticalPath returns the chain with the longest cumulative lead time among the items
// in codes. codes must come from LowLevelCodes so the graph restricted to them is acyclic.
func (g *BOMGraph) CriticalPath(codes map[entities.ItemID]int, leadTime func(entities.ItemID) int) entities.CriticalPath {
	items := make([]entities.ItemID, 0, len(codes))
	for item := range codes {
		items = append(items, item)
	}
	SortByLowLevelCode(items, codes)

	longest := make(map[entities.ItemID]int, len(items))
	next := make(map[entities.ItemID]entities.ItemID, len(items))

	// Deepest items first so every child is final before its parents read it.
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		best := 0
		var bestChild entities.ItemID
		for _, child := range g.children[item] {
			if _, ok := codes[child]; !ok {
				continue
			}
			if l := longest[child]; l > best || (l == best && bestChild != "" && child < bestChild) || bestChild == "" {
				best = l
				bestChild = child
			}
		}
		longest[item] = leadTime(item) + best
		if bestChild != "" {
			next[item] = bestChild
		}
	}

	var root entities.ItemID
	for _, item := range items {
		if root == "" || longest[item] > longest[root] {
			root = item
		}
	}
	if root == "" {
		return entities.CriticalPath{}
	}

	cp := entities.CriticalPath{Root: root, TotalLeadTime: longest[root]}
	bottleneckLT := -1
	for cur := root; cur != ""; cur = next[cur] {
		cp.Path = append(cp.Path, cur)
		if lt := leadTime(cur); lt > bottleneckLT {
			bottleneckLT = lt
			cp.BottleneckItem = cur
		}
	}
	return cp
}
