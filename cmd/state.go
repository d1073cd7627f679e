package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/grantinsight/gisearch/pkg/search"
	"github.com/urfave/cli/v3"
)

// StateCommand creates the state command, which inspects and prunes the
// persisted session queries.
func StateCommand() *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "Inspect persisted search sessions",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List sessions, most recent first",
				Action: func(ctx context.Context, c *cli.Command) error {
					return listSessions(c)
				},
			},
			{
				Name:      "show",
				Usage:     "Show the last query of a session",
				ArgsUsage: "<session>",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("expected exactly one session id")
					}
					return showSession(c, c.Args().First())
				},
			},
			{
				Name:      "clear",
				Usage:     "Forget everything stored for a session",
				ArgsUsage: "<session>",
				Action: func(ctx context.Context, c *cli.Command) error {
					if c.Args().Len() != 1 {
						return fmt.Errorf("expected exactly one session id")
					}
					return clearSession(c, c.Args().First())
				},
			},
			{
				Name:  "schema",
				Usage: "Show the applied schema migrations",
				Action: func(ctx context.Context, c *cli.Command) error {
					return showSchema(c)
				},
			},
			{
				Name:  "purge",
				Usage: "Remove sessions idle for longer than the configured TTL",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Override the configured session TTL",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return purgeSessions(c)
				},
			},
		},
	}
}

func listSessions(c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions, err := store.Sessions()
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions stored")
		return nil
	}
	for _, s := range sessions {
		fmt.Printf("%-40s %2d keys  %s\n", s.ID, s.Keys, s.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

func showSession(c *cli.Command, id string) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	raw, ok, err := store.Get(id, search.StateKey)
	if err != nil {
		return fmt.Errorf("reading session %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("session %s has no stored query", id)
	}

	var params search.Params
	if err := json.Unmarshal([]byte(raw), &params); err != nil {
		return fmt.Errorf("decoding stored query: %w", err)
	}
	fmt.Printf("Session: %s\n", id)
	fmt.Printf("  keyword:   %s\n", params.Search)
	for _, name := range search.FilterNames {
		fmt.Printf("  %-10s %s\n", name+":", params.Filter(name))
	}
	fmt.Printf("  orderby:   %s\n", params.OrderBy)
	fmt.Printf("  per page:  %d\n", params.PostsPerPage)
	fmt.Printf("  page:      %d\n", params.Page)
	return nil
}

func clearSession(c *cli.Command, id string) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(id); err != nil {
		return fmt.Errorf("clearing session %s: %w", id, err)
	}
	fmt.Printf("Session %s cleared\n", id)
	return nil
}

func purgeSessions(c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ttl := cfg.Storage.SessionTTL.Duration
	if c.IsSet("older-than") {
		ttl = c.Duration("older-than")
	}
	n, err := store.Purge(ttl)
	if err != nil {
		return fmt.Errorf("purging sessions: %w", err)
	}
	fmt.Printf("Removed %d sessions idle for more than %s\n", n, ttl)
	return nil
}

func showSchema(c *cli.Command) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	status, err := store.Migrations()
	if err != nil {
		return fmt.Errorf("reading migration status: %w", err)
	}
	for _, m := range status.Applied {
		fmt.Printf("%03d %-40s applied %s\n", m.Version, m.Name, m.AppliedAt.Format(time.RFC3339))
	}
	for _, m := range status.Pending {
		fmt.Printf("%03d %-40s pending\n", m.Version, m.Name)
	}
	return nil
}
