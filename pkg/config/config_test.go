package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Timeout.Duration != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", cfg.Timeout.Duration)
	}
	if cfg.UI.DebounceDelay.Duration != 300*time.Millisecond {
		t.Errorf("debounce = %v, want 300ms", cfg.UI.DebounceDelay.Duration)
	}
	if cfg.Endpoint.SearchAction != "gi_unified_search" {
		t.Errorf("search action = %q", cfg.Endpoint.SearchAction)
	}
	if cfg.Elements.ResultsContainer != "search-results-unified" {
		t.Errorf("results container = %q", cfg.Elements.ResultsContainer)
	}
	if got := cfg.Elements.Filters.ByName()["amount"]; len(got) != 1 || got[0] != "amount-filter" {
		t.Errorf("amount filter ids = %v", got)
	}
	if !cfg.UI.ShowLoadingOnSearch || !cfg.UI.EnableAutoComplete {
		t.Errorf("expected loading and autocomplete enabled by default")
	}
}

func TestParseOverrides(t *testing.T) {
	data := []byte(`
debug = true
timeout = "5s"

[endpoint]
ajax_url = "https://grants.example/wp-admin/admin-ajax.php"
nonce = "abc123"

[ui]
enable_autocomplete = false
debounce_delay = "150ms"

[elements]
search_inputs = ["q1", "q2"]

[elements.filters]
region = []

[cache]
max_entries = 64
`)
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if !cfg.Debug {
		t.Errorf("expected debug true")
	}
	if cfg.Timeout.Duration != 5*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout.Duration)
	}
	if cfg.Endpoint.Nonce != "abc123" {
		t.Errorf("nonce = %q", cfg.Endpoint.Nonce)
	}
	if cfg.UI.EnableAutoComplete {
		t.Errorf("expected autocomplete disabled")
	}
	if !cfg.UI.ShowLoadingOnSearch {
		t.Errorf("expected loading indicator to stay enabled when unset")
	}
	if cfg.UI.DebounceDelay.Duration != 150*time.Millisecond {
		t.Errorf("debounce = %v", cfg.UI.DebounceDelay.Duration)
	}
	if len(cfg.Elements.SearchInputs) != 2 {
		t.Errorf("search inputs = %v", cfg.Elements.SearchInputs)
	}
	if len(cfg.Elements.Filters.Region) != 0 {
		t.Errorf("explicitly empty region filter should stay empty, got %v", cfg.Elements.Filters.Region)
	}
	if cfg.Cache.MaxEntries != 64 {
		t.Errorf("max entries = %d", cfg.Cache.MaxEntries)
	}
	if cfg.Endpoint.SuggestAction != "gi_search_suggest" {
		t.Errorf("suggest action default not applied: %q", cfg.Endpoint.SuggestAction)
	}
}

func TestParseInvalidDuration(t *testing.T) {
	if _, err := Parse([]byte(`timeout = "soon"`)); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestResolvedStrings(t *testing.T) {
	tests := []struct {
		name      string
		locale    string
		custom    Strings
		noResults string
		failed    string
	}{
		{name: "default english", locale: "", noResults: "No results found", failed: "Search request failed"},
		{name: "japanese", locale: "ja", noResults: "該当する助成金が見つかりませんでした", failed: "検索リクエストに失敗しました"},
		{name: "japanese region", locale: "ja-JP", noResults: "該当する助成金が見つかりませんでした", failed: "検索リクエストに失敗しました"},
		{name: "unsupported falls back", locale: "fr", noResults: "No results found", failed: "Search request failed"},
		{name: "custom wins", locale: "ja", custom: Strings{NoResults: "なし"}, noResults: "なし", failed: "検索リクエストに失敗しました"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.Locale = tt.locale
			cfg.Strings = tt.custom
			s := cfg.ResolvedStrings()
			if s.NoResults != tt.noResults {
				t.Errorf("NoResults = %q, want %q", s.NoResults, tt.noResults)
			}
			if s.RequestFailed != tt.failed {
				t.Errorf("RequestFailed = %q, want %q", s.RequestFailed, tt.failed)
			}
		})
	}
}

func TestSaveTemplateConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.toml")

	cfg := GetDefaultConfig()
	cfg.Storage.Dir = filepath.Join(dir, "data")
	if err := cfg.SaveTemplateConfig(path); err != nil {
		t.Fatalf("SaveTemplateConfig: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("template not written: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Storage.Dir != cfg.Storage.Dir {
		t.Errorf("storage dir = %q, want %q", loaded.Storage.Dir, cfg.Storage.Dir)
	}
	if loaded.Locale != "ja" {
		t.Errorf("locale = %q, want ja", loaded.Locale)
	}
}
