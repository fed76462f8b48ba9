package main

import (
	"fmt"
	"sort"

	"github.com/quantmind-br/whyml-go/internal/cache"
	"github.com/quantmind-br/whyml-go/internal/utils"
	"github.com/spf13/cobra"
)

func newCacheCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the persistent manifest cache",
	}
	cmd.AddCommand(newCacheClearCmd(c), newCacheInfoCmd(c))
	return cmd
}

func newCacheClearCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, dir, err := c.openCache()
			if err != nil {
				return err
			}
			defer bc.Close()

			if err := bc.Clear(); err != nil {
				return fmt.Errorf("failed to clear cache: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cache cleared: %s\n", dir)
			return nil
		},
	}
}

func newCacheInfoCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show persistent cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bc, dir, err := c.openCache()
			if err != nil {
				return err
			}
			defer bc.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "directory: %s\n", dir)
			stats := bc.Stats()
			keys := make([]string, 0, len(stats))
			for k := range stats {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%s: %v\n", k, stats[k])
			}
			return nil
		},
	}
}

func (c *cli) openCache() (*cache.BadgerCache, string, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, "", err
	}
	dir := utils.ExpandPath(cfg.Cache.Directory)
	bc, err := cache.NewBadgerCache(cache.Options{
		Directory: dir,
		Compress:  cfg.Cache.Compress,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to open cache at %s: %w", dir, err)
	}
	return bc, dir, nil
}
