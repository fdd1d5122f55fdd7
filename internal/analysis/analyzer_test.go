package analysis

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/kalambet/userpipe/internal/source"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Sentiment
	}{
		{"Innovative solutions for tomorrow", Optimistic},
		{"Managing RISK across portfolios", Pessimistic},
		{"growth through every problem", Optimistic},
		{"a challenge we turn into success", Optimistic},
		{"Multi-layered client-server neural-net", Balanced},
		{"", Balanced},
		{"Failure is not an option", Pessimistic},
		{"optimally staffed", Optimistic},
	}

	for _, tt := range tests {
		if got := Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestAnalyze_FullRecord(t *testing.T) {
	rec := source.Record{
		"name": "Leanne Graham",
		"company": map[string]any{
			"name":        "Romaguera-Crona",
			"catchPhrase": "Innovative client-server neural-net",
		},
		"address": map[string]any{"city": "Gwenborough"},
	}

	got, err := Analyze(rec)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := "Leanne Graham works at Romaguera-Crona and is based in Gwenborough. Professional environment detected."
	if got.Summary != want {
		t.Errorf("Summary = %q, want %q", got.Summary, want)
	}
	if got.Sentiment != Optimistic {
		t.Errorf("Sentiment = %q, want %q", got.Sentiment, Optimistic)
	}
}

func TestAnalyze_MissingFieldsDefaultToUnknown(t *testing.T) {
	got, err := Analyze(source.Record{"name": "Ervin Howell"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := "Ervin Howell works at Unknown and is based in Unknown. Professional environment detected."
	if got.Summary != want {
		t.Errorf("Summary = %q, want %q", got.Summary, want)
	}
	if got.Sentiment != Balanced {
		t.Errorf("Sentiment = %q, want balanced", got.Sentiment)
	}

	empty, err := Analyze(source.Record{})
	if err != nil {
		t.Fatalf("Analyze(empty): %v", err)
	}
	if n := strings.Count(empty.Summary, Unknown); n != 3 {
		t.Errorf("expected 3 Unknown substitutions, got %d in %q", n, empty.Summary)
	}
}

func TestAnalyze_NullFieldsDefaultToUnknown(t *testing.T) {
	rec, err := source.Decode(`{"name":null,"company":null,"address":{"city":null}}`)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Analyze(rec)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !strings.HasPrefix(got.Summary, "Unknown works at Unknown") {
		t.Errorf("Summary = %q", got.Summary)
	}
}

func TestAnalyze_MalformedShapes(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"company not object", `{"name":"A","company":"Acme"}`, "company: expected object"},
		{"address is array", `{"name":"A","address":["x"]}`, "address: expected object"},
		{"name is number", `{"name":42}`, "name: expected string"},
		{"company name is object", `{"company":{"name":{"legal":"Acme"}}}`, "company.name: expected string"},
		{"catchPhrase is bool", `{"company":{"catchPhrase":true}}`, "company.catchPhrase: expected string"},
		{"city is number", `{"address":{"city":7}}`, "address.city: expected string"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec source.Record
			if err := json.Unmarshal([]byte(tt.raw), &rec); err != nil {
				t.Fatal(err)
			}
			_, err := Analyze(rec)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestAnalyze_FallbackRecordsAreBalanced(t *testing.T) {
	for _, rec := range source.Fallback() {
		got, err := Analyzer{}.Analyze(rec)
		if err != nil {
			t.Fatalf("Analyze(%v): %v", rec["name"], err)
		}
		if got.Sentiment != Balanced {
			t.Errorf("%v: sentiment = %q, want balanced", rec["name"], got.Sentiment)
		}
		if strings.Contains(got.Summary, Unknown) {
			t.Errorf("%v: unexpected Unknown in %q", rec["name"], got.Summary)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := DisplayName(source.Record{"name": "Clementine Bauch"}); got != "Clementine Bauch" {
		t.Errorf("DisplayName = %q", got)
	}
	if got := DisplayName(source.Record{"name": 12}); got != Unknown {
		t.Errorf("DisplayName(non-string) = %q, want Unknown", got)
	}
	if got := DisplayName(nil); got != Unknown {
		t.Errorf("DisplayName(nil) = %q, want Unknown", got)
	}
}
