package cmd

import (
	"context"
	"fmt"

	"github.com/grantinsight/gisearch/pkg/config"
	"github.com/urfave/cli/v3"
)

// InitCommand creates the init command
func InitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize configuration",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "storage-dir",
				Usage: "Directory for the session database",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return initConfig(c.String("config"), c.String("storage-dir"))
		},
	}
}

// initConfig writes the commented sample configuration
func initConfig(configPath, storageDir string) error {
	cfg := config.GetDefaultConfig()
	cfg.Storage.Dir = storageDir
	if err := cfg.SaveTemplateConfig(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Configuration initialized at %s\n", configPath)
	return nil
}
