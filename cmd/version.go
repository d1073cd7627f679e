package cmd

import (
	"context"
	"fmt"

	"github.com/grantinsight/gisearch/pkg/version"
	"github.com/urfave/cli/v3"
)

// VersionCommand creates the version command
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "user-agent",
				Usage: "Print the User-Agent sent to the CMS endpoint",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Bool("user-agent") {
				fmt.Println(version.UserAgent())
				return nil
			}
			fmt.Println(version.BuildVersion())
			return nil
		},
	}
}
