package ner

import (
	"sort"

	"github.com/OFFIS-RIT/paperkg/pkg/common"
)

const maxExamples = 3

// Normalize rolls mentions up by canonical form. Entities are numbered in
// first seen order and take the node type of their first mention.
func Normalize(mentions []common.EntityMention) []common.NormalizedEntity {
	type bucket struct {
		entity   common.NormalizedEntity
		sections map[string]struct{}
	}

	index := make(map[string]int)
	var buckets []*bucket
	for _, m := range mentions {
		i, ok := index[m.Canonical]
		if !ok {
			i = len(buckets)
			index[m.Canonical] = i
			buckets = append(buckets, &bucket{
				entity: common.NormalizedEntity{
					NID:       i,
					Canonical: m.Canonical,
					NodeType:  m.NodeType,
				},
				sections: make(map[string]struct{}),
			})
		}
		b := buckets[i]
		b.entity.Frequency++
		b.sections[m.SectionHeading] = struct{}{}
		if len(b.entity.Examples) < maxExamples {
			b.entity.Examples = append(b.entity.Examples, m.Mention)
		}
	}

	out := make([]common.NormalizedEntity, 0, len(buckets))
	for _, b := range buckets {
		sections := make([]string, 0, len(b.sections))
		for s := range b.sections {
			sections = append(sections, s)
		}
		sort.Strings(sections)
		b.entity.Sections = sections
		out = append(out, b.entity)
	}
	return out
}
