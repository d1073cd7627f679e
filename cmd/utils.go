package cmd

import (
	"fmt"

	"github.com/grantinsight/gisearch/pkg/config"
	"github.com/grantinsight/gisearch/pkg/dom"
	"github.com/grantinsight/gisearch/pkg/log"
	"github.com/grantinsight/gisearch/pkg/search"
	"github.com/grantinsight/gisearch/pkg/storage"
	"github.com/urfave/cli/v3"
)

// loadConfig reads the file named by --config and applies --debug.
func loadConfig(c *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.Bool("debug") || cfg.Debug {
		log.SetGlobalDebug(true)
	}
	return cfg, nil
}

// openStore opens the session database in the configured storage directory.
func openStore(cfg *config.Config) (*storage.SessionStore, error) {
	dir, err := cfg.StorageDir()
	if err != nil {
		return nil, err
	}
	store, err := storage.OpenDir(dir)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}
	return store, nil
}

// controllerOptions maps the configuration onto controller options. The
// caller fills in State, Suggester and OnSuggest.
func controllerOptions(cfg *config.Config) search.Options {
	s := cfg.ResolvedStrings()
	e := cfg.Elements
	return search.Options{
		Elements: search.Elements{
			SearchInputs:     e.SearchInputs,
			Filters:          e.Filters.ByName(),
			SortSelect:       e.SortSelect,
			PerPageSelect:    e.PerPageSelect,
			ResultsContainer: e.ResultsContainer,
			Pagination:       e.Pagination,
			LoadingIndicator: e.LoadingIndicator,
		},
		Strings: search.Strings{
			NoResults:     s.NoResults,
			SearchFailed:  s.SearchFailed,
			RequestFailed: s.RequestFailed,
		},
		Timeout:             cfg.Timeout.Duration,
		DebounceDelay:       cfg.UI.DebounceDelay.Duration,
		MinSuggestLength:    cfg.UI.MinSuggestLength,
		DisableAutoComplete: !cfg.UI.EnableAutoComplete,
		DisableLoadingUI:    !cfg.UI.ShowLoadingOnSearch,
		AnimationDuration:   cfg.UI.AnimationDuration.Duration,
		StaggerStep:         cfg.UI.StaggerStep.Duration,
		CacheSize:           cfg.Cache.MaxEntries,
		ClearCacheOnReset:   cfg.Cache.ClearOnReset,
	}
}

// multiValued reports whether a filter group is rendered as checkboxes.
func multiValued(name string) bool {
	return name == search.FilterAmount || name == search.FilterStatus
}

// newSearchPage builds the in-memory page described by the configuration:
// the element ids of [elements] populated with the choices of [form].
func newSearchPage(cfg *config.Config) *dom.Document {
	doc := dom.NewDocument()
	e := cfg.Elements

	for _, id := range e.SearchInputs {
		doc.AddText(id, "")
	}

	choices := cfg.Form.ByName()
	for _, name := range search.FilterNames {
		for _, id := range e.Filters.ByName()[name] {
			if multiValued(name) {
				doc.AddToggleGroup(id, false, domOptions(choices[name], false)...)
				continue
			}
			opts := append([]dom.Option{{Value: ""}}, domOptions(choices[name], false)...)
			doc.AddSelect(id, opts...)
		}
	}

	doc.AddSelect(e.SortSelect, domOptions(cfg.Form.OrderBy, true)...)
	doc.AddSelect(e.PerPageSelect, domOptions(cfg.Form.PerPage, true)...)
	doc.AddContainer(e.ResultsContainer)
	doc.AddContainer(e.Pagination)
	doc.AddIndicator(e.LoadingIndicator, false)
	return doc
}

func domOptions(opts []config.Option, selectFirst bool) []dom.Option {
	out := make([]dom.Option, 0, len(opts))
	for i, o := range opts {
		out = append(out, dom.Option{
			Value:    o.Value,
			Label:    o.Label,
			Selected: selectFirst && i == 0,
		})
	}
	return out
}
