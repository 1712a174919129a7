package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/logger"
	"github.com/OFFIS-RIT/paperkg/pkg/store"

	neo4jv5 "github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

const (
	defaultBatchSize = 1000
	defaultPoolSize  = 50
	defaultTimeout   = 10 * time.Second
)

// Params configures the connection of a Sink.
type Params struct {
	URI         string
	User        string
	Password    string
	Database    string
	MaxPoolSize int
	Timeout     time.Duration
	BatchSize   int
}

// Sink loads paper graphs into Neo4j. Every graph node becomes an ENTITY
// node keyed by "<paper>:<eid>" and every relation a REL relationship.
type Sink struct {
	driver    neo4jv5.DriverWithContext
	database  string
	batchSize int
}

var _ store.GraphSink = (*Sink)(nil)

// NewSink connects to Neo4j and verifies connectivity.
func NewSink(ctx context.Context, params Params) (*Sink, error) {
	if params.URI == "" {
		return nil, fmt.Errorf("neo4j: uri required")
	}
	user := params.User
	if user == "" {
		user = "neo4j"
	}
	poolSize := params.MaxPoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	auth := neo4jv5.BasicAuth(user, params.Password, "")
	driver, err := neo4jv5.NewDriverWithContext(params.URI, auth, func(cfg *neo4jv5.Config) {
		cfg.MaxConnectionPoolSize = poolSize
		cfg.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	return &Sink{driver: driver, database: params.Database, batchSize: batch}, nil
}

func (s *Sink) Close(ctx context.Context) error {
	if s == nil || s.driver == nil {
		return nil
	}
	err := s.driver.Close(ctx)
	s.driver = nil
	return err
}

const (
	constraintCypher = `CREATE CONSTRAINT entity_id_unique IF NOT EXISTS FOR (n:ENTITY) REQUIRE n.id IS UNIQUE`

	deletePaperCypher = `MATCH (n:ENTITY {paper_id: $paper_id}) DETACH DELETE n`

	nodesCypher = `
UNWIND $rows AS row
MERGE (n:ENTITY {id: row.id})
SET n.eid = row.eid,
    n.paper_id = row.paper_id,
    n.mention = row.mention,
    n.frequency = row.frequency,
    n.node_type = row.node_type,
    n.role = row.role,
    n.sections = row.sections,
    n.anchor = row.anchor,
    n.page = row.page`

	relationsCypher = `
UNWIND $rows AS row
MATCH (s:ENTITY {id: row.source})
MATCH (t:ENTITY {id: row.target})
MERGE (s)-[r:REL {paper_id: row.paper_id, rid: row.rid}]->(t)
SET r.type = row.type,
    r.method = row.method,
    r.pattern_type = row.pattern_type,
    r.trigger = row.trigger,
    r.evidence_span = row.evidence_span,
    r.section = row.section,
    r.sentence_id = row.sentence_id`

	purgeCypher = `MATCH (n:ENTITY) DETACH DELETE n`
)

func (s *Sink) session(ctx context.Context) neo4jv5.SessionWithContext {
	return s.driver.NewSession(ctx, neo4jv5.SessionConfig{
		AccessMode:   neo4jv5.AccessModeWrite,
		DatabaseName: s.database,
	})
}

// SaveGraph replaces the nodes and relationships of g.PaperID.
func (s *Sink) SaveGraph(ctx context.Context, g common.Graph) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	// May fail for restricted users.
	if res, err := session.Run(ctx, constraintCypher, nil); err != nil {
		logger.Warn("[Neo4j] Schema init failed, continuing", "err", err)
	} else {
		_, _ = res.Consume(ctx)
	}

	if err := s.write(ctx, session, deletePaperCypher, map[string]any{"paper_id": g.PaperID}); err != nil {
		return fmt.Errorf("neo4j: delete paper %s: %w", g.PaperID, err)
	}

	nodes := nodeRows(g)
	err := store.ChunkRange(len(nodes), s.batchSize, func(start, end int) error {
		logger.Debug("[Neo4j] Writing nodes", "paper", g.PaperID, "start", start, "end", end)
		return s.write(ctx, session, nodesCypher, map[string]any{"rows": nodes[start:end]})
	})
	if err != nil {
		return fmt.Errorf("neo4j: write nodes: %w", err)
	}

	rels := relationRows(g)
	err = store.ChunkRange(len(rels), s.batchSize, func(start, end int) error {
		logger.Debug("[Neo4j] Writing relationships", "paper", g.PaperID, "start", start, "end", end)
		return s.write(ctx, session, relationsCypher, map[string]any{"rows": rels[start:end]})
	})
	if err != nil {
		return fmt.Errorf("neo4j: write relationships: %w", err)
	}

	logger.Info("[Neo4j] Loaded paper graph", "paper", g.PaperID, "nodes", len(nodes), "relationships", len(rels))
	return nil
}

func (s *Sink) DeleteGraph(ctx context.Context, paperID string) error {
	session := s.session(ctx)
	defer session.Close(ctx)
	return s.write(ctx, session, deletePaperCypher, map[string]any{"paper_id": paperID})
}

// Purge removes every ENTITY node of the database.
func (s *Sink) Purge(ctx context.Context) error {
	session := s.session(ctx)
	defer session.Close(ctx)
	return s.write(ctx, session, purgeCypher, nil)
}

func (s *Sink) write(ctx context.Context, session neo4jv5.SessionWithContext, cypher string, params map[string]any) error {
	_, err := session.ExecuteWrite(ctx, func(tx neo4jv5.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

func nodeRows(g common.Graph) []map[string]any {
	rows := make([]map[string]any, 0, len(g.Entities))
	for _, e := range g.Entities {
		sections := e.Sections
		if sections == nil {
			sections = []string{}
		}
		row := map[string]any{
			"id":        store.NodeKey(g.PaperID, e.EID),
			"eid":       e.EID,
			"paper_id":  g.PaperID,
			"mention":   e.Mention,
			"frequency": int64(e.Frequency),
			"node_type": e.NodeType,
			"role":      optional(e.Role),
			"sections":  sections,
			"anchor":    nil,
			"page":      nil,
		}
		if e.Nav != nil {
			row["anchor"] = e.Nav.Anchor
			if e.Nav.Page != nil {
				row["page"] = int64(*e.Nav.Page)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func relationRows(g common.Graph) []map[string]any {
	rows := make([]map[string]any, 0, len(g.Relations))
	for _, r := range g.Relations {
		row := map[string]any{
			"source":        store.NodeKey(g.PaperID, r.SourceEID),
			"target":        store.NodeKey(g.PaperID, r.TargetEID),
			"paper_id":      g.PaperID,
			"rid":           int64(r.RID),
			"type":          r.Type,
			"method":        r.Method,
			"pattern_type":  r.PatternType,
			"trigger":       optional(r.Trigger),
			"evidence_span": optional(r.EvidenceSpan),
			"section":       optional(r.SectionHeading),
			"sentence_id":   nil,
		}
		if r.SentenceID != nil {
			row["sentence_id"] = int64(*r.SentenceID)
		}
		rows = append(rows, row)
	}
	return rows
}

// optional maps nil to a Cypher null instead of a typed nil pointer.
func optional(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
