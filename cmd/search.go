package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/grantinsight/gisearch/pkg/config"
	"github.com/grantinsight/gisearch/pkg/render"
	"github.com/grantinsight/gisearch/pkg/search"
	"github.com/urfave/cli/v3"
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search grants through the CMS endpoint",
		ArgsUsage: "[keyword]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "query",
				Aliases: []string{"q"},
				Usage:   "Search keyword",
			},
			&cli.StringSliceFlag{
				Name:  "amount",
				Usage: "Amount range filter, may be repeated",
			},
			&cli.StringSliceFlag{
				Name:  "status",
				Usage: "Status filter, may be repeated",
			},
			&cli.StringFlag{
				Name:  "industry",
				Usage: "Industry filter",
			},
			&cli.StringFlag{
				Name:  "region",
				Usage: "Region filter",
			},
			&cli.StringFlag{
				Name:  "orderby",
				Usage: "Sort order (date_desc, amount_desc, ...)",
			},
			&cli.IntFlag{
				Name:  "per-page",
				Usage: "Results per page",
			},
			&cli.IntFlag{
				Name:  "page",
				Usage: "Page number",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "Session whose last query is restored and updated",
				Value: "cli",
			},
			&cli.BoolFlag{
				Name:  "fresh",
				Usage: "Forget the session's last query before searching",
			},
			&cli.BoolFlag{
				Name:  "suggest",
				Usage: "Print keyword suggestions instead of searching",
			},
			&cli.IntFlag{
				Name:  "width",
				Usage: "Output width",
				Value: 80,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			keyword := c.String("query")
			if keyword == "" && c.Args().Len() > 0 {
				keyword = strings.Join(c.Args().Slice(), " ")
			}
			client := search.NewAjaxClient(cfg.Endpoint)
			if c.Bool("suggest") {
				return printSuggestions(ctx, client, keyword)
			}
			return runSearch(ctx, c, cfg, client, keyword)
		},
	}
}

func runSearch(ctx context.Context, c *cli.Command, cfg *config.Config, transport search.Transport, keyword string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Printf("Warning: failed to close session store: %v\n", err)
		}
	}()

	sessionID := c.String("session")
	if c.Bool("fresh") {
		if err := store.Clear(sessionID); err != nil {
			return fmt.Errorf("clearing session %s: %w", sessionID, err)
		}
	}

	page := newSearchPage(cfg)
	opts := controllerOptions(cfg)
	opts.State = store.Session(sessionID)
	opts.DisableAutoComplete = true

	ctrl := search.New(page, transport, opts)
	defer ctrl.Close()
	ctrl.Initialize(ctx)

	outcome := ctrl.ExecuteSearch(ctx, searchOverrides(c, keyword)...)
	params := ctrl.CurrentQuery()

	results, _ := page.Container(cfg.Elements.ResultsContainer)
	if outcome == search.Failed {
		return fmt.Errorf("search failed: %s", results.Text())
	}

	width := c.Int("width")
	fmt.Print(render.Terminal(results.HTML(), width))
	if pager, ok := page.Container(cfg.Elements.Pagination); ok {
		fmt.Print(render.TerminalPagination(pager.HTML(), params.Page))
	}
	if outcome == search.Cached {
		fmt.Println("(cached)")
	}
	return nil
}

// searchOverrides turns the flags the user actually passed into overrides,
// so anything left unset keeps the value restored from the session.
func searchOverrides(c *cli.Command, keyword string) []search.Override {
	var out []search.Override
	if keyword != "" {
		out = append(out, search.Keyword(keyword))
	}
	if c.IsSet("amount") {
		out = append(out, search.Filter(search.FilterAmount, strings.Join(c.StringSlice("amount"), ",")))
	}
	if c.IsSet("status") {
		out = append(out, search.Filter(search.FilterStatus, strings.Join(c.StringSlice("status"), ",")))
	}
	if c.IsSet("industry") {
		out = append(out, search.Filter(search.FilterIndustry, c.String("industry")))
	}
	if c.IsSet("region") {
		out = append(out, search.Filter(search.FilterRegion, c.String("region")))
	}
	if c.IsSet("orderby") {
		out = append(out, search.OrderBy(c.String("orderby")))
	}
	if c.IsSet("per-page") {
		out = append(out, search.PerPage(c.Int("per-page")))
	}
	out = append(out, search.Page(c.Int("page")))
	return out
}

func printSuggestions(ctx context.Context, s search.Suggester, keyword string) error {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return fmt.Errorf("a keyword is required for suggestions")
	}
	list, err := s.Suggest(ctx, keyword)
	if err != nil {
		return fmt.Errorf("fetching suggestions: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No suggestions")
		return nil
	}
	for _, item := range list {
		fmt.Println(item)
	}
	return nil
}
