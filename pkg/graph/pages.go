package graph

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"

	"github.com/OFFIS-RIT/paperkg/internal/util"
	"github.com/OFFIS-RIT/paperkg/pkg/common"
)

const (
	charsPerPage      = 3500
	maxEstimatedPages = 12
)

var nonDigits = regexp.MustCompile(`[^0-9]`)

// PagePoint marks the text offset at which a page starts.
type PagePoint struct {
	Page   int `json:"page"`
	Offset int `json:"offset"`
}

// ParseTEIPages reads page breaks from a TEI document. Offsets count the
// runes of all text preceding each <pb/> element. A document without page
// breaks yields a single point for page 1.
func ParseTEIPages(r io.Reader) ([]PagePoint, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	var points []PagePoint
	offset := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse TEI: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "pb" {
				continue
			}
			page := len(points) + 1
			for _, a := range t.Attr {
				if a.Name.Local != "n" {
					continue
				}
				if n, err := strconv.Atoi(nonDigits.ReplaceAllString(a.Value, "")); err == nil {
					page = n
				}
			}
			points = append(points, PagePoint{Page: page, Offset: offset})
		case xml.CharData:
			offset += util.RuneLen(string(t))
		}
	}
	if len(points) == 0 {
		points = append(points, PagePoint{Page: 1, Offset: 0})
	}
	return points, nil
}

// AssignPages sets nav.page of every anchored entity to the last page that
// starts at or before the entity's first character.
func AssignPages(g *common.Graph, points []PagePoint) {
	if len(points) == 0 {
		return
	}
	for i := range g.Entities {
		nav := g.Entities[i].Nav
		if nav == nil {
			continue
		}
		idx := sort.Search(len(points), func(j int) bool {
			return points[j].Offset > nav.CharStart
		})
		best := points[0]
		if idx > 0 {
			best = points[idx-1]
		}
		nav.Page = common.Ptr(best.Page)
	}
}

// EstimatePageCount guesses the page count of a paper without TEI. Figure
// pages win; otherwise the text length is spread over pages of a fixed size.
func EstimatePageCount(figurePages []int, textLength int) int {
	total := 0
	for _, p := range figurePages {
		if p > total {
			total = p
		}
	}
	if total > 0 {
		return total
	}
	return max(1, min(maxEstimatedPages, textLength/charsPerPage+1))
}

// AssignHeuristicPages spreads entities linearly over totalPages by their
// offset relative to the furthest entity. Pages are flagged as heuristic.
func AssignHeuristicPages(g *common.Graph, totalPages int) {
	maxChar := 0
	for _, e := range g.Entities {
		if e.Nav == nil {
			continue
		}
		c := e.Nav.CharEnd
		if c == 0 {
			c = e.Nav.CharStart
		}
		if c > maxChar {
			maxChar = c
		}
	}

	for i := range g.Entities {
		nav := g.Entities[i].Nav
		if nav == nil || nav.CharStart < 0 {
			continue
		}
		page := 1
		if totalPages > 1 && maxChar > 0 {
			page = int(float64(nav.CharStart)/float64(maxChar)*float64(totalPages-1)) + 1
		}
		nav.Page = common.Ptr(page)
		nav.PageHeuristic = true
	}
}
