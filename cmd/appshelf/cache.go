package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/appshelf/cache"
	"github.com/ZaguanLabs/appshelf/internal/config"
	"github.com/ZaguanLabs/appshelf/internal/server"
)

func newCacheCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Export or import the shared translation cache",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "export <file>",
			Short: "Write every cached translation to a JSON file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, cleanup, err := openSharedCache(cmd, root)
				if err != nil {
					return err
				}
				defer cleanup()

				n, err := cache.NewExporter(c).ExportToFile(args[0], nil)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "exported %d entries to %s\n", n, args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "import <file>",
			Short: "Load a JSON cache export into the shared cache",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, cleanup, err := openSharedCache(cmd, root)
				if err != nil {
					return err
				}
				defer cleanup()

				result, err := cache.NewImporter(c).ImportFromFile(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries (%d failed) from %s\n",
					result.Imported, result.Failed, args[0])
				return nil
			},
		},
	)
	return cmd
}

// openSharedCache connects to the configured cache. A process-local memory
// cache starts empty and dies with the command, so only redis is accepted.
func openSharedCache(cmd *cobra.Command, root *rootFlags) (*cache.RedisCache, func(), error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Cache.Backend != config.BackendRedis {
		return nil, nil, fmt.Errorf("cache commands need a shared backend: set cache.backend to %q (current %q)",
			config.BackendRedis, cfg.Cache.Backend)
	}

	c, err := server.NewCache(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	rc := c.(*cache.RedisCache)
	return rc, func() { _ = rc.Close() }, nil
}
