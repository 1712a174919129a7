// Package artifact persists per paper pipeline artifacts on the local
// filesystem or in S3 under a fixed key layout.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"path"
)

// ErrNotFound is returned when a required artifact does not exist.
var ErrNotFound = errors.New("artifact not found")

// Store reads and writes artifacts by slash separated key.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Exists(ctx context.Context, key string) (bool, error)
	// List returns all keys below prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Delete removes all keys below prefix.
	Delete(ctx context.Context, prefix string) error
}

// Paths builds the artifact keys of one paper.
//
//	<paper>/summary_and_content/<paper>.content.json
//	<paper>/summary_and_content/*.tei.xml
//	<paper>/graph/phase1/sections.json
//	<paper>/graph/phase2/sentences.jsonl
//	<paper>/graph/phase3/entities.jsonl, entities.normalized.jsonl
//	<paper>/graph/phase4/relations.jsonl
//	<paper>/graph/phase5/...
type Paths struct {
	PaperID string
}

func (p Paths) ContentDir() string {
	return path.Join(p.PaperID, "summary_and_content")
}

func (p Paths) Content() string {
	return path.Join(p.ContentDir(), p.PaperID+".content.json")
}

func (p Paths) Phase(n int) string {
	return path.Join(p.PaperID, "graph", fmt.Sprintf("phase%d", n))
}

func (p Paths) Sections() string {
	return path.Join(p.Phase(1), "sections.json")
}

func (p Paths) Sentences() string {
	return path.Join(p.Phase(2), "sentences.jsonl")
}

func (p Paths) Entities() string {
	return path.Join(p.Phase(3), "entities.jsonl")
}

func (p Paths) NormalizedEntities() string {
	return path.Join(p.Phase(3), "entities.normalized.jsonl")
}

func (p Paths) Relations() string {
	return path.Join(p.Phase(4), "relations.jsonl")
}

// Graph returns the key of a phase 5 file.
func (p Paths) Graph(name string) string {
	return path.Join(p.Phase(5), name)
}
