package rules

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/kljensen/snowball/english"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultRules []byte

// PairRule maps an ordered pair of node types to a relation type.
type PairRule struct {
	Source   string `yaml:"source"`
	Target   string `yaml:"target"`
	Relation string `yaml:"relation"`
}

// VerbRule maps an ordered pair of node types and a verb family to a relation type.
type VerbRule struct {
	Source   string `yaml:"source"`
	Target   string `yaml:"target"`
	Family   string `yaml:"family"`
	Relation string `yaml:"relation"`
}

// SpecialTokens holds the tables used to reclassify or drop domain specific tokens.
type SpecialTokens struct {
	TemperaturePattern string   `yaml:"temperature_pattern"`
	Reagents           []string `yaml:"reagents"`
	HousekeepingGenes  []string `yaml:"housekeeping_genes"`
	NumberWords        []string `yaml:"number_words"`
	ShortLowerMax      int      `yaml:"short_lower_max"`
}

// Rules is the raw, versioned rule document.
type Rules struct {
	Version              string              `yaml:"version"`
	LabelMap             map[string]string   `yaml:"label_map"`
	CoocRules            []PairRule          `yaml:"cooc_rules"`
	GeneInteraction      string              `yaml:"gene_interaction"`
	SymmetricTypes       []string            `yaml:"symmetric_types"`
	VerbFamilies         map[string][]string `yaml:"verb_families"`
	VerbRules            []VerbRule          `yaml:"verb_rules"`
	Blacklist            []string            `yaml:"blacklist"`
	StopTerms            []string            `yaml:"stop_terms"`
	ShortWhitelist       []string            `yaml:"short_whitelist"`
	GenePattern          string              `yaml:"gene_pattern"`
	GeneWhitelist        []string            `yaml:"gene_whitelist"`
	GenePrefixes         []string            `yaml:"gene_prefixes"`
	PathwayWhitelist     []string            `yaml:"pathway_whitelist"`
	CellTypeSuffixes     []string            `yaml:"cell_type_suffixes"`
	CellTypePhrases      []string            `yaml:"cell_type_phrases"`
	LiteralTypes         map[string]string   `yaml:"literal_types"`
	PreserveCaseTypes    []string            `yaml:"preserve_case_types"`
	Special              SpecialTokens       `yaml:"special"`
	NoisyMentionPatterns []string            `yaml:"noisy_mention_patterns"`
	SectionHeadings      map[string]string   `yaml:"section_headings"`
	Palette              map[string]string   `yaml:"palette"`
	DefaultColor         string              `yaml:"default_color"`
	Lexicon              map[string][]string `yaml:"lexicon"`
}

type pairKey struct {
	a, b string
}

type verbKey struct {
	a, b, family string
}

type verbEntry struct {
	family string
	lemma  string
}

// Table is the compiled, read-only form of Rules used by the extractors.
// A Table is safe for concurrent use.
type Table struct {
	Rules

	labels      map[string]string
	cooc        map[pairKey]string
	symmetric   map[string]struct{}
	verbs       map[string]verbEntry
	verbRules   map[verbKey]string
	blacklist   map[string]struct{}
	stopTerms   map[string]struct{}
	shortWhite  map[string]struct{}
	geneWhite   map[string]struct{}
	pathways    map[string]struct{}
	cellPhrases map[string]struct{}
	reagents    map[string]struct{}
	housekeep   map[string]struct{}
	numberWords map[string]struct{}
	preserve    map[string]struct{}
	headings    map[string]string

	genePattern  *regexp.Regexp
	temperature  *regexp.Regexp
	noisyMention []*regexp.Regexp
}

var defaultTable = sync.OnceValues(func() (*Table, error) {
	return Load(defaultRules)
})

// Default returns the embedded rule table.
func Default() (*Table, error) {
	return defaultTable()
}

// MustDefault returns the embedded rule table and panics if it does not compile.
func MustDefault() *Table {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// LoadFile reads and compiles a rule document from disk.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return Load(data)
}

// Load parses and compiles a YAML rule document.
func Load(data []byte) (*Table, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	return Compile(r)
}

// Compile builds lookup indexes for r. Later entries of a table override earlier
// entries with the same key.
func Compile(r Rules) (*Table, error) {
	t := &Table{
		Rules:       r,
		labels:      make(map[string]string, len(r.LabelMap)),
		cooc:        make(map[pairKey]string, len(r.CoocRules)),
		verbs:       make(map[string]verbEntry),
		verbRules:   make(map[verbKey]string, len(r.VerbRules)),
		symmetric:   upperSet(r.SymmetricTypes),
		blacklist:   upperSet(r.Blacklist),
		stopTerms:   lowerSet(r.StopTerms),
		shortWhite:  upperSet(r.ShortWhitelist),
		geneWhite:   upperSet(r.GeneWhitelist),
		pathways:    upperSet(r.PathwayWhitelist),
		cellPhrases: upperSet(r.CellTypePhrases),
		reagents:    upperSet(r.Special.Reagents),
		housekeep:   upperSet(r.Special.HousekeepingGenes),
		numberWords: lowerSet(r.Special.NumberWords),
		preserve:    upperSet(r.PreserveCaseTypes),
		headings:    make(map[string]string, len(r.SectionHeadings)),
	}

	for label, nodeType := range r.LabelMap {
		t.labels[strings.ToUpper(label)] = nodeType
	}
	for _, rule := range r.CoocRules {
		t.cooc[pairKey{rule.Source, rule.Target}] = rule.Relation
	}
	for family, words := range r.VerbFamilies {
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				continue
			}
			entry := verbEntry{family: family, lemma: w}
			t.verbs[w] = entry
			t.verbs[english.Stem(w, false)] = entry
		}
	}
	for _, rule := range r.VerbRules {
		t.verbRules[verbKey{rule.Source, rule.Target, rule.Family}] = rule.Relation
	}
	for k, v := range r.SectionHeadings {
		t.headings[strings.ToLower(strings.TrimSpace(k))] = v
	}

	var err error
	if r.GenePattern != "" {
		if t.genePattern, err = regexp.Compile(r.GenePattern); err != nil {
			return nil, fmt.Errorf("invalid gene_pattern: %w", err)
		}
	}
	if r.Special.TemperaturePattern != "" {
		if t.temperature, err = regexp.Compile(r.Special.TemperaturePattern); err != nil {
			return nil, fmt.Errorf("invalid temperature_pattern: %w", err)
		}
	}
	for _, p := range r.NoisyMentionPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid noisy mention pattern %q: %w", p, err)
		}
		t.noisyMention = append(t.noisyMention, re)
	}

	return t, nil
}

// NodeType maps a raw provider label to a canonical node type. ok is false
// for unknown labels and for labels mapped to the empty type.
func (t *Table) NodeType(label string) (string, bool) {
	nt, ok := t.labels[strings.ToUpper(label)]
	if !ok || nt == "" {
		return "", false
	}
	return nt, true
}

// Cooc looks up the co-occurrence rule for the ordered pair (a, b).
func (t *Table) Cooc(a, b string) (string, bool) {
	rel, ok := t.cooc[pairKey{a, b}]
	return rel, ok
}

// IsSymmetric reports whether relType is declared symmetric.
func (t *Table) IsSymmetric(relType string) bool {
	_, ok := t.symmetric[strings.ToUpper(relType)]
	return ok
}

// VerbFamily resolves a verb (any inflection) to its semantic family and the
// table lemma that matched.
func (t *Table) VerbFamily(word string) (family, lemma string, ok bool) {
	w := strings.ToLower(strings.TrimSpace(word))
	if w == "" {
		return "", "", false
	}
	if e, found := t.verbs[w]; found {
		return e.family, e.lemma, true
	}
	if e, found := t.verbs[english.Stem(w, false)]; found {
		return e.family, e.lemma, true
	}
	return "", "", false
}

// VerbRelation looks up the relation type for (source, target, family).
func (t *Table) VerbRelation(source, target, family string) (string, bool) {
	rel, ok := t.verbRules[verbKey{source, target, family}]
	return rel, ok
}

func (t *Table) IsBlacklisted(mention string) bool {
	return contains(t.blacklist, strings.ToUpper(strings.TrimSpace(mention)))
}

func (t *Table) IsStopTerm(mention string) bool {
	return contains(t.stopTerms, strings.ToLower(strings.TrimSpace(mention)))
}

func (t *Table) IsShortWhitelisted(mention string) bool {
	return contains(t.shortWhite, strings.ToUpper(mention))
}

// IsGeneSymbol reports whether mention looks like a gene symbol.
func (t *Table) IsGeneSymbol(mention string) bool {
	up := strings.ToUpper(mention)
	if contains(t.geneWhite, up) {
		return true
	}
	for _, p := range t.GenePrefixes {
		if p != "" && strings.HasPrefix(up, strings.ToUpper(p)) {
			return true
		}
	}
	return t.genePattern != nil && t.genePattern.MatchString(up)
}

// IsKnownGene reports whether mention is an explicitly listed gene, a
// housekeeping gene or a short whitelisted token.
func (t *Table) IsKnownGene(mention string) bool {
	up := strings.ToUpper(mention)
	return contains(t.geneWhite, up) || contains(t.housekeep, up) || contains(t.shortWhite, up)
}

func (t *Table) IsPathway(mention string) bool {
	up := strings.ReplaceAll(strings.ToUpper(mention), "–", "-")
	return contains(t.pathways, up)
}

// IsCellType matches the closed set of cell type phrases.
func (t *Table) IsCellType(mention string) bool {
	up := strings.ToUpper(mention)
	for _, s := range t.CellTypeSuffixes {
		if s != "" && strings.HasSuffix(up, strings.ToUpper(s)) {
			return true
		}
	}
	return contains(t.cellPhrases, up)
}

// LiteralType returns the fixed node type for an exact mention, if any.
func (t *Table) LiteralType(mention string) (string, bool) {
	nt, ok := t.LiteralTypes[strings.ToUpper(mention)]
	return nt, ok
}

func (t *Table) PreservesCase(nodeType string) bool {
	return contains(t.preserve, nodeType)
}

func (t *Table) IsTemperature(mention string) bool {
	return t.temperature != nil && t.temperature.MatchString(mention)
}

func (t *Table) IsReagent(mention string) bool {
	return contains(t.reagents, strings.ToUpper(mention))
}

func (t *Table) IsHousekeepingGene(mention string) bool {
	return contains(t.housekeep, strings.ToUpper(mention))
}

func (t *Table) IsNumberWord(mention string) bool {
	return contains(t.numberWords, strings.ToLower(mention))
}

// IsNoisyMention applies the graph level mention filters.
func (t *Table) IsNoisyMention(mention string) bool {
	for _, re := range t.noisyMention {
		if re.MatchString(mention) {
			return true
		}
	}
	return false
}

// Heading canonicalizes a section heading. Unknown headings are returned trimmed.
func (t *Table) Heading(h string) string {
	trimmed := strings.TrimSpace(h)
	if v, ok := t.headings[strings.ToLower(trimmed)]; ok {
		return v
	}
	return trimmed
}

// Color returns the palette color of a node type.
func (t *Table) Color(nodeType string) string {
	if c, ok := t.Palette[nodeType]; ok {
		return c
	}
	if t.DefaultColor != "" {
		return t.DefaultColor
	}
	return "#cccccc"
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

func upperSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToUpper(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}
