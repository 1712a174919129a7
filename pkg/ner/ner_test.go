package ner

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/OFFIS-RIT/paperkg/pkg/common"
	"github.com/OFFIS-RIT/paperkg/pkg/nlp"
	"github.com/OFFIS-RIT/paperkg/pkg/rules"
)

type fakeProvider struct {
	name  string
	spans []nlp.Span
	err   error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Extract(context.Context, string) ([]nlp.Span, error) {
	return f.spans, f.err
}

func spanOf(t *testing.T, text, sub, label string) nlp.Span {
	t.Helper()
	idx := strings.Index(text, sub)
	if idx < 0 {
		t.Fatalf("%q not in %q", sub, text)
	}
	start := utf8.RuneCountInString(text[:idx])
	return nlp.Span{Start: start, End: start + utf8.RuneCountInString(sub), Label: label, Text: sub}
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		mention  string
		preserve bool
		want     string
	}{
		{"Tp53", true, "TP53"},
		{"Studies", false, "study"},
		{"cells", false, "cell"},
		{"Mass", false, "mass"},
		{"glass", false, "glass"},
		{"ies", false, "ies"},
		{"Osteoclasts", false, "osteoclast"},
		{"bias", false, "bias"},
	}

	for _, tt := range tests {
		t.Run(tt.mention, func(t *testing.T) {
			if got := Canonical(tt.mention, tt.preserve); got != tt.want {
				t.Errorf("Canonical(%q, %v) = %q, want %q", tt.mention, tt.preserve, got, tt.want)
			}
		})
	}
}

func TestCanonicalIdempotent(t *testing.T) {
	inputs := []string{
		"Studies", "cells", "species", "Series", "glasses", "Mass", "bones", "NF-κB",
		"Osteoclasts", "microgravity", "T cells", "Über", "ies", "ss", "abcies", "proteinss",
		"stresses", "Ä", "", "  spaced  ",
	}
	for _, in := range inputs {
		for _, preserve := range []bool{true, false} {
			once := Canonical(in, preserve)
			if twice := Canonical(once, preserve); twice != once {
				t.Errorf("Canonical not idempotent for %q (preserve=%v): %q -> %q", in, preserve, once, twice)
			}
		}
	}
}

func TestExtractFiltersAndTypes(t *testing.T) {
	text := "TP53 and GAPDH increased two cells at 42°C using Trizol under microgravity in Results."
	sent := common.Sentence{
		SID:              7,
		SectionIndex:     1,
		SectionHeading:   "RESULTS",
		Text:             text,
		CharStartSection: 10,
		CharStartGlobal:  100,
	}

	primary := &fakeProvider{name: "primary", spans: []nlp.Span{
		spanOf(t, text, "TP53", "GENE"),
		spanOf(t, text, "GAPDH", "PROTEIN"),
		spanOf(t, text, "increased", "PHENOTYPE"),
		spanOf(t, text, "two", "CHEMICAL"),
		spanOf(t, text, "cells", "CELL"),
		spanOf(t, text, "42°C", "LAB_VALUE"),
		spanOf(t, text, "Trizol", "CHEMICAL"),
		spanOf(t, text, "microgravity", "B-DISEASE"),
		spanOf(t, text, "Results", "DISEASE"),
	}}
	secondary := &fakeProvider{name: "secondary", spans: []nlp.Span{
		spanOf(t, text, "TP53", "GENE"),
		spanOf(t, text, "GAPDH", "GENE"),
	}}
	broken := &fakeProvider{name: "broken", err: errors.New("boom")}

	reg := nlp.NewRegistry()
	reg.RegisterProvider(primary)
	reg.RegisterProvider(broken)
	reg.RegisterProvider(secondary)

	ex := NewExtractor(reg, rules.MustDefault(), DefaultOptions())
	got, err := ex.Extract(context.Background(), []common.Sentence{sent})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	type row struct {
		EID, Mention, NodeType, Canonical, Provider, Role string
	}
	var rows []row
	for _, m := range got {
		rows = append(rows, row{m.EID, m.Mention, m.NodeType, m.Canonical, m.Provider, common.Deref(m.Role)})
	}
	want := []row{
		{"0", "TP53", "GENE_PRODUCT", "TP53", "primary", ""},
		{"1", "GAPDH", "GENE_PRODUCT", "GAPDH", "primary", "HOUSEKEEPING_GENE"},
		{"2", "42°C", "EXPERIMENTAL_CONDITION", "42°c", "primary", "THERMAL_PARAMETER"},
		{"3", "Trizol", "REAGENT", "trizol", "primary", "LAB_REAGENT"},
		{"4", "microgravity", "PHENOTYPE", "microgravity", "primary", ""},
		{"5", "GAPDH", "GENE_PRODUCT", "GAPDH", "secondary", "HOUSEKEEPING_GENE"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("Extract() = %#v, want %#v", rows, want)
	}

	tp53 := got[0]
	if tp53.Type != "GENE" || tp53.SentenceID != 7 || tp53.SectionHeading != "RESULTS" {
		t.Errorf("unexpected mention metadata: %#v", tp53)
	}
	if tp53.CharStartSentence != 0 || tp53.CharEndSentence != 4 ||
		tp53.CharStartSection != 10 || tp53.CharStartGlobal != 100 || tp53.CharEndGlobal != 104 {
		t.Errorf("unexpected offsets: %#v", tp53)
	}
	temp := got[2]
	if temp.CharEndSentence-temp.CharStartSentence != 4 {
		t.Errorf("temperature span should be 4 runes, got %d", temp.CharEndSentence-temp.CharStartSentence)
	}
}

func TestExtractTrimsSpans(t *testing.T) {
	text := "Loss of  osteoclasts here."
	reg := nlp.NewRegistry()
	reg.RegisterProvider(&fakeProvider{name: "p", spans: []nlp.Span{
		{Start: 8, End: 21, Label: "CELL_TYPE", Text: " osteoclasts "},
	}})

	got, err := NewExtractor(reg, rules.MustDefault(), DefaultOptions()).
		Extract(context.Background(), []common.Sentence{{SID: 0, Text: text}})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Extract() = %#v", got)
	}
	if got[0].Mention != "osteoclasts" || got[0].CharStartSentence != 9 || got[0].CharEndSentence != 20 {
		t.Fatalf("unexpected trimmed mention: %#v", got[0])
	}
	if got[0].Canonical != "osteoclast" {
		t.Fatalf("Canonical = %q", got[0].Canonical)
	}
}

func TestExtractFilterTypes(t *testing.T) {
	text := "TP53 drives apoptosis."
	reg := nlp.NewRegistry()
	reg.RegisterProvider(&fakeProvider{name: "p", spans: []nlp.Span{
		spanOf(t, text, "TP53", "GENE"),
		spanOf(t, text, "apoptosis", "PROCESS"),
	}})

	opts := DefaultOptions()
	opts.FilterTypes = []string{"BIOLOGICAL_PROCESS"}
	got, err := NewExtractor(reg, rules.MustDefault(), opts).
		Extract(context.Background(), []common.Sentence{{Text: text}})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(got) != 1 || got[0].NodeType != "BIOLOGICAL_PROCESS" {
		t.Fatalf("Extract() = %#v", got)
	}
}

func TestExtractEIDsSpanSentences(t *testing.T) {
	reg := nlp.NewRegistry()
	reg.RegisterProvider(nlp.NewLexiconProvider(rules.MustDefault()))

	sentences := []common.Sentence{
		{SID: 0, Text: "Apoptosis and autophagy were observed."},
		{SID: 1, Text: "Nothing here."},
		{SID: 2, Text: "Osteoporosis follows apoptosis."},
	}
	got, err := NewExtractor(reg, rules.MustDefault(), DefaultOptions()).Extract(context.Background(), sentences)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	var eids, sids []string
	for _, m := range got {
		eids = append(eids, m.EID)
		sids = append(sids, m.Mention)
	}
	if !reflect.DeepEqual(eids, []string{"0", "1", "2", "3"}) {
		t.Fatalf("eids = %v (%v)", eids, sids)
	}
	if got[2].SentenceID != 2 {
		t.Fatalf("third mention sentence = %d", got[2].SentenceID)
	}
}

func TestExtractCancelled(t *testing.T) {
	reg := nlp.NewRegistry()
	reg.RegisterProvider(&fakeProvider{name: "p", err: context.Canceled})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewExtractor(reg, rules.MustDefault(), DefaultOptions()).
		Extract(ctx, []common.Sentence{{Text: "TP53"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Extract() error = %v, want context.Canceled", err)
	}
}

func TestNormalize(t *testing.T) {
	mentions := []common.EntityMention{
		{Canonical: "TP53", NodeType: "GENE_PRODUCT", Mention: "TP53", SectionHeading: "RESULTS"},
		{Canonical: "apoptosis", NodeType: "BIOLOGICAL_PROCESS", Mention: "apoptosis", SectionHeading: "INTRODUCTION"},
		{Canonical: "TP53", NodeType: "GENE_PRODUCT", Mention: "Tp53", SectionHeading: "INTRODUCTION"},
		{Canonical: "TP53", NodeType: "GENE_PRODUCT", Mention: "tp53", SectionHeading: "RESULTS"},
		{Canonical: "TP53", NodeType: "GENE_PRODUCT", Mention: "TP53", SectionHeading: "METHODS"},
	}

	got := Normalize(mentions)
	want := []common.NormalizedEntity{
		{
			NID: 0, Canonical: "TP53", NodeType: "GENE_PRODUCT", Frequency: 4,
			Sections: []string{"INTRODUCTION", "METHODS", "RESULTS"},
			Examples: []string{"TP53", "Tp53", "tp53"},
		},
		{
			NID: 1, Canonical: "apoptosis", NodeType: "BIOLOGICAL_PROCESS", Frequency: 1,
			Sections: []string{"INTRODUCTION"},
			Examples: []string{"apoptosis"},
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Normalize() = %#v, want %#v", got, want)
	}
}
