package graph

import (
	"sort"

	"github.com/OFFIS-RIT/paperkg/pkg/common"
)

// Degrees counts relation endpoints per node id. Self loops count twice.
func Degrees(rels []common.Relation) map[string]int {
	deg := make(map[string]int)
	for _, r := range rels {
		deg[r.SourceEID]++
		deg[r.TargetEID]++
	}
	return deg
}

// Adjacency builds an undirected adjacency list.
func Adjacency(rels []common.Relation) map[string][]string {
	adj := make(map[string][]string)
	for _, r := range rels {
		adj[r.SourceEID] = append(adj[r.SourceEID], r.TargetEID)
		adj[r.TargetEID] = append(adj[r.TargetEID], r.SourceEID)
	}
	return adj
}

// Components returns the connected components restricted to ids, in order of
// their first node in ids. Edges to nodes outside ids are ignored.
func Components(ids []string, rels []common.Relation) [][]string {
	adj := Adjacency(rels)
	return ComponentsOf(ids, adj)
}

// ComponentsOf is Components over a prebuilt adjacency list.
func ComponentsOf(ids []string, adj map[string][]string) [][]string {
	allowed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}

	visited := make(map[string]struct{}, len(ids))
	var comps [][]string
	for _, start := range ids {
		if _, ok := visited[start]; ok {
			continue
		}
		visited[start] = struct{}{}
		comp := []string{start}
		queue := []string{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, nb := range adj[cur] {
				if _, ok := allowed[nb]; !ok {
					continue
				}
				if _, seen := visited[nb]; seen {
					continue
				}
				visited[nb] = struct{}{}
				comp = append(comp, nb)
				queue = append(queue, nb)
			}
		}
		comps = append(comps, comp)
	}
	return comps
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
