package graph

import (
	"math"
	"sort"

	"github.com/OFFIS-RIT/paperkg/pkg/common"

	"github.com/samber/lo"
)

const componentDistributionSize = 10

// ComputeStats summarizes entities and relations.
func ComputeStats(entities []common.GraphEntity, rels []common.Relation) common.Stats {
	s := common.Stats{
		EntityTypes:   make(map[string]int),
		RelationTypes: make(map[string]int),
		NEntities:     len(entities),
		NRelations:    len(rels),
	}
	for _, e := range entities {
		s.EntityTypes[e.NodeType]++
	}
	for _, r := range rels {
		s.RelationTypes[r.Type]++
	}

	withTrigger := lo.CountBy(rels, func(r common.Relation) bool {
		return r.Trigger != nil && *r.Trigger != ""
	})
	if len(rels) > 0 {
		s.RelationsWithTriggerPct = round(float64(withTrigger)/float64(len(rels))*100, 2)
	}

	ids := lo.Map(entities, func(e common.GraphEntity, _ int) string { return e.EID })
	sizes := lo.Map(Components(ids, rels), func(c []string, _ int) int { return len(c) })
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
	s.NComponents = len(sizes)
	if len(sizes) > 0 {
		s.LargestComponentSize = sizes[0]
	}
	if len(sizes) > componentDistributionSize {
		sizes = sizes[:componentDistributionSize]
	}
	s.ComponentSizeDistribution = sizes

	deg := Degrees(rels)
	degrees := lo.Map(ids, func(id string, _ int) int { return deg[id] })
	if len(degrees) == 0 {
		return s
	}
	s.AvgDegree = float64(lo.Sum(degrees)) / float64(len(degrees))
	sorted := append([]int(nil), degrees...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		s.MedianDegree = float64(sorted[mid])
	} else {
		s.MedianDegree = float64(sorted[mid-1]+sorted[mid]) / 2
	}
	s.IsolatedNodes = lo.Count(degrees, 0)
	return s
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
