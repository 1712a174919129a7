package graph

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/OFFIS-RIT/paperkg/pkg/common"
)

var (
	nodeCSVHeader     = []string{"id:ID", "mention", "frequency:int", "node_type:LABEL", "sections"}
	relationCSVHeader = []string{":START_ID", ":END_ID", "type:TYPE", "method", "trigger", "evidence_span", "section_heading", "sentence_id:int"}
)

// WriteNodesCSV writes the nodes of g in neo4j-admin import format.
func WriteNodesCSV(w io.Writer, g common.Graph) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(nodeCSVHeader); err != nil {
		return err
	}
	for _, e := range g.Entities {
		nodeType := e.NodeType
		if nodeType == "" {
			nodeType = "ENTITY"
		}
		row := []string{
			e.EID,
			e.Mention,
			strconv.Itoa(e.Frequency),
			nodeType,
			strings.Join(e.Sections, "|"),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write node %s: %w", e.EID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRelationsCSV writes the relations of g in neo4j-admin import format.
func WriteRelationsCSV(w io.Writer, g common.Graph) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(relationCSVHeader); err != nil {
		return err
	}
	for _, r := range g.Relations {
		relType := r.Type
		if relType == "" {
			relType = "RELATED_TO"
		}
		sentence := ""
		if r.SentenceID != nil {
			sentence = strconv.Itoa(*r.SentenceID)
		}
		row := []string{
			r.SourceEID,
			r.TargetEID,
			relType,
			r.Method,
			common.Deref(r.Trigger),
			strings.ReplaceAll(common.Deref(r.EvidenceSpan), "\n", " "),
			common.Deref(r.SectionHeading),
			sentence,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write relation %d: %w", r.RID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
