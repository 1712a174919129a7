package rules

import "testing"

func TestDefaultCompiles(t *testing.T) {
	table, err := Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if table.Version == "" {
		t.Fatalf("expected a version on the default rules")
	}
}

func TestNodeType(t *testing.T) {
	table := MustDefault()

	tests := []struct {
		label  string
		want   string
		wantOK bool
	}{
		{"PROTEIN", "GENE_PRODUCT", true},
		{"protein", "GENE_PRODUCT", true},
		{"DISEASE_OR_SYNDROME", "DISEASE", true},
		{"SPECIES", "ORGANISM", true},
		{"COREFERENCE", "", false},
		{"PERSON", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := table.NodeType(tt.label)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NodeType(%q) = (%q, %v), want (%q, %v)", tt.label, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCoocIsDirected(t *testing.T) {
	table := MustDefault()

	if rel, ok := table.Cooc("GENE_PRODUCT", "DISEASE"); !ok || rel != "GENE_PRODUCT_ASSOCIATED_WITH_DISEASE" {
		t.Fatalf("Cooc(GENE_PRODUCT, DISEASE) = (%q, %v)", rel, ok)
	}
	if _, ok := table.Cooc("DISEASE", "GENE_PRODUCT"); ok {
		t.Fatalf("Cooc(DISEASE, GENE_PRODUCT) should not match")
	}
	if _, ok := table.Cooc("GENE_PRODUCT", "BIOLOGICAL_PROCESS"); ok {
		t.Fatalf("Cooc(GENE_PRODUCT, BIOLOGICAL_PROCESS) should not match")
	}
}

func TestVerbFamily(t *testing.T) {
	table := MustDefault()

	tests := []struct {
		word      string
		wantLemma string
		wantOK    bool
	}{
		{"inhibits", "inhibit", true},
		{"inhibited", "inhibit", true},
		{"Activates", "activate", true},
		{"induced", "induce", true},
		{"observed", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			family, lemma, ok := table.VerbFamily(tt.word)
			if ok != tt.wantOK || lemma != tt.wantLemma {
				t.Errorf("VerbFamily(%q) = (%q, %q, %v), want lemma %q ok %v", tt.word, family, lemma, ok, tt.wantLemma, tt.wantOK)
			}
			if ok && family != "MODULATE" {
				t.Errorf("VerbFamily(%q) family = %q, want MODULATE", tt.word, family)
			}
		})
	}
}

func TestVerbRelation(t *testing.T) {
	table := MustDefault()

	rel, ok := table.VerbRelation("GENE_PRODUCT", "BIOLOGICAL_PROCESS", "MODULATE")
	if !ok || rel != "GENE_PRODUCT_PARTICIPATES_IN_PROCESS" {
		t.Fatalf("VerbRelation = (%q, %v)", rel, ok)
	}
	if _, ok := table.VerbRelation("DISEASE", "CHEMICAL", "MODULATE"); ok {
		t.Fatalf("unexpected verb rule for (DISEASE, CHEMICAL)")
	}
}

func TestTypingHelpers(t *testing.T) {
	table := MustDefault()

	if !table.IsGeneSymbol("tp53") {
		t.Errorf("IsGeneSymbol(tp53) = false")
	}
	if !table.IsGeneSymbol("NF-κB") {
		t.Errorf("IsGeneSymbol(NF-κB) = false")
	}
	if table.IsGeneSymbol("apoptosis") {
		t.Errorf("IsGeneSymbol(apoptosis) = true")
	}
	if !table.IsPathway("PI3K–AKT") {
		t.Errorf("IsPathway with en dash = false")
	}
	if !table.IsCellType("cancer cells") || !table.IsCellType("macrophages") {
		t.Errorf("IsCellType failed on known phrases")
	}
	if nt, ok := table.LiteralType("Microgravity"); !ok || nt != "PHENOTYPE" {
		t.Errorf("LiteralType(Microgravity) = (%q, %v)", nt, ok)
	}
	if !table.IsTemperature("42°C") || !table.IsTemperature("95uC") || table.IsTemperature("1000C") {
		t.Errorf("IsTemperature mismatch")
	}
	if !table.IsBlacklisted(" results ") {
		t.Errorf("IsBlacklisted(results) = false")
	}
	if !table.IsStopTerm("Increased") {
		t.Errorf("IsStopTerm(Increased) = false")
	}
}

func TestIsNoisyMention(t *testing.T) {
	table := MustDefault()

	tests := []struct {
		mention string
		want    bool
	}{
		{"12A", true},
		{"42", true},
		{"Fig 3", true},
		{"figure2", true},
		{"Table S1", true},
		{"Supplement 4", true},
		{"TP53", false},
		{"apoptosis", false},
	}

	for _, tt := range tests {
		t.Run(tt.mention, func(t *testing.T) {
			if got := table.IsNoisyMention(tt.mention); got != tt.want {
				t.Errorf("IsNoisyMention(%q) = %v, want %v", tt.mention, got, tt.want)
			}
		})
	}
}

func TestHeadingAndColor(t *testing.T) {
	table := MustDefault()

	if got := table.Heading("  Materials and Methods "); got != "METHODS" {
		t.Errorf("Heading() = %q, want METHODS", got)
	}
	if got := table.Heading("Supplementary Notes"); got != "Supplementary Notes" {
		t.Errorf("Heading() = %q", got)
	}
	if got := table.Color("GENE_PRODUCT"); got != "#1f77b4" {
		t.Errorf("Color(GENE_PRODUCT) = %q", got)
	}
	if got := table.Color("UNKNOWN"); got != "#cccccc" {
		t.Errorf("Color(UNKNOWN) = %q", got)
	}
}

func TestLoadRejectsBadPattern(t *testing.T) {
	_, err := Load([]byte("gene_pattern: '['\n"))
	if err == nil {
		t.Fatalf("expected error for invalid pattern")
	}
}
