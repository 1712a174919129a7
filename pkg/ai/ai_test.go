package ai

import (
	"sync"
	"testing"
)

func TestApplyOptions(t *testing.T) {
	got := ApplyOptions(
		GenerateOptions{Model: "default", Temperature: 0.1},
		WithModel("m"),
		WithTemperature(0),
		WithSystemPrompts("a", "b"),
	)
	if got.Model != "m" || got.Temperature != 0 || len(got.SystemPrompts) != 2 {
		t.Fatalf("ApplyOptions() = %+v", got)
	}
}

func TestMetricsRecorder(t *testing.T) {
	var r MetricsRecorder

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Add(ModelMetrics{InputTokens: 10, OutputTokens: 5, TotalTokens: 15, DurationMs: 100})
		}()
	}
	wg.Wait()

	got := r.Snapshot()
	if got.TotalTokens != 150 || got.DurationMs != 1000 {
		t.Fatalf("Snapshot() = %+v", got)
	}
	if got.TokenPerSecond != 150 {
		t.Fatalf("TokenPerSecond = %v, want 150", got.TokenPerSecond)
	}

	r.Reset()
	if r.Snapshot() != (ModelMetrics{}) {
		t.Fatalf("Reset() did not clear metrics")
	}
}

func TestGenerateSchemaRejectsAdditionalProperties(t *testing.T) {
	type payload struct {
		Name string `json:"name" jsonschema_description:"The name"`
	}
	schema := GenerateSchema(&payload{})
	if schema == nil {
		t.Fatalf("GenerateSchema() returned nil")
	}
}
