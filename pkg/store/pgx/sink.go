package pgx

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/paperkg/internal/util"
	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/logger"
	"github.com/OFFIS-RIT/paperkg/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const defaultChunkSize = 500

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// Sink stores paper graphs in PostgreSQL.
type Sink struct {
	conn      pgxIConn
	chunkSize int
}

var _ store.GraphSink = (*Sink)(nil)

type SinkOption func(*Sink)

func WithChunkSize(n int) SinkOption {
	return func(s *Sink) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// NewSink creates a Sink on top of an existing connection or pool. The
// schema is expected to be migrated already, see Migrate.
func NewSink(conn pgxIConn, opts ...SinkOption) *Sink {
	s := &Sink{conn: conn, chunkSize: defaultChunkSize}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s
}

const upsertPaperSQL = `
INSERT INTO papers (paper_id, n_entities, n_relations, stats, updated_at)
VALUES ($1, $2, $3, $4::jsonb, now())
ON CONFLICT (paper_id) DO UPDATE
SET n_entities = EXCLUDED.n_entities,
    n_relations = EXCLUDED.n_relations,
    stats = EXCLUDED.stats,
    updated_at = now()`

const insertEntitiesSQL = `
INSERT INTO entities (paper_id, eid, mention, node_type, role, frequency, sections, nav_anchor, nav_page)
SELECT $1::text, * FROM UNNEST($2::text[], $3::text[], $4::text[], $5::text[], $6::int[], $7::text[], $8::text[], $9::int[])`

const insertRelationsSQL = `
INSERT INTO relations (paper_id, rid, type, source_eid, target_eid, method, pattern_type, trigger, evidence_span, section_heading, sentence_id)
SELECT $1::text, * FROM UNNEST($2::int[], $3::text[], $4::text[], $5::text[], $6::text[], $7::text[], $8::text[], $9::text[], $10::text[], $11::int[])`

// SaveGraph replaces the stored graph of g.PaperID inside one transaction.
func (s *Sink) SaveGraph(ctx context.Context, g common.Graph) error {
	stats, err := json.Marshal(g.Stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM relations WHERE paper_id = $1`, g.PaperID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM entities WHERE paper_id = $1`, g.PaperID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, upsertPaperSQL, g.PaperID, len(g.Entities), len(g.Relations), string(stats)); err != nil {
		return fmt.Errorf("failed to upsert paper %s: %w", g.PaperID, err)
	}

	ents := entityColumnsOf(g.Entities)
	err = store.ChunkRange(len(g.Entities), s.chunkSize, func(start, end int) error {
		logger.Debug("[Graph][SaveEntities] Inserting chunk", "paper", g.PaperID, "start", start, "end", end)
		_, err := tx.Exec(ctx, insertEntitiesSQL, g.PaperID,
			ents.eids[start:end], ents.mentions[start:end], ents.nodeTypes[start:end],
			ents.roles[start:end], ents.frequencies[start:end], ents.sections[start:end],
			ents.anchors[start:end], ents.pages[start:end],
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert entities: %w", err)
	}

	rels := relationColumnsOf(g.Relations)
	err = store.ChunkRange(len(g.Relations), s.chunkSize, func(start, end int) error {
		logger.Debug("[Graph][SaveRelations] Inserting chunk", "paper", g.PaperID, "start", start, "end", end)
		_, err := tx.Exec(ctx, insertRelationsSQL, g.PaperID,
			rels.rids[start:end], rels.types[start:end], rels.sources[start:end],
			rels.targets[start:end], rels.methods[start:end], rels.patterns[start:end],
			rels.triggers[start:end], rels.evidence[start:end], rels.headings[start:end],
			rels.sentences[start:end],
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert relations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	logger.Info("[Graph] Saved paper graph", "paper", g.PaperID, "entities", len(g.Entities), "relations", len(g.Relations))
	return nil
}

// DeleteGraph removes a paper and, by cascade, its entities and relations.
func (s *Sink) DeleteGraph(ctx context.Context, paperID string) error {
	_, err := s.conn.Exec(ctx, `DELETE FROM papers WHERE paper_id = $1`, paperID)
	return err
}

type entityColumns struct {
	eids        []string
	mentions    []string
	nodeTypes   []string
	roles       []*string
	frequencies []int32
	sections    []string
	anchors     []*string
	pages       []*int32
}

func entityColumnsOf(entities []common.GraphEntity) entityColumns {
	n := len(entities)
	c := entityColumns{
		eids:        make([]string, n),
		mentions:    make([]string, n),
		nodeTypes:   make([]string, n),
		roles:       make([]*string, n),
		frequencies: make([]int32, n),
		sections:    make([]string, n),
		anchors:     make([]*string, n),
		pages:       make([]*int32, n),
	}
	for i, e := range entities {
		c.eids[i] = e.EID
		c.mentions[i] = util.SanitizePostgresText(e.Mention)
		c.nodeTypes[i] = e.NodeType
		c.roles[i] = e.Role
		c.frequencies[i] = int32(e.Frequency)
		c.sections[i] = strings.Join(e.Sections, "|")
		if e.Nav != nil {
			c.anchors[i] = common.Ptr(e.Nav.Anchor)
			if e.Nav.Page != nil {
				c.pages[i] = common.Ptr(int32(*e.Nav.Page))
			}
		}
	}
	return c
}

type relationColumns struct {
	rids      []int32
	types     []string
	sources   []string
	targets   []string
	methods   []string
	patterns  []string
	triggers  []*string
	evidence  []*string
	headings  []*string
	sentences []*int32
}

func relationColumnsOf(relations []common.Relation) relationColumns {
	n := len(relations)
	c := relationColumns{
		rids:      make([]int32, n),
		types:     make([]string, n),
		sources:   make([]string, n),
		targets:   make([]string, n),
		methods:   make([]string, n),
		patterns:  make([]string, n),
		triggers:  make([]*string, n),
		evidence:  make([]*string, n),
		headings:  make([]*string, n),
		sentences: make([]*int32, n),
	}
	for i, r := range relations {
		c.rids[i] = int32(r.RID)
		c.types[i] = r.Type
		c.sources[i] = r.SourceEID
		c.targets[i] = r.TargetEID
		c.methods[i] = r.Method
		c.patterns[i] = r.PatternType
		c.triggers[i] = r.Trigger
		if r.EvidenceSpan != nil {
			c.evidence[i] = common.Ptr(util.SanitizePostgresText(*r.EvidenceSpan))
		}
		c.headings[i] = r.SectionHeading
		if r.SentenceID != nil {
			c.sentences[i] = common.Ptr(int32(*r.SentenceID))
		}
	}
	return c
}
