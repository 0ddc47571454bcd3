package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marco/mediaVault/internal/cache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the digest cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show the digest cache location and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDigestCache(ctx, func(c *cache.SQLiteCache) error {
				n, err := c.Len()
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"path": ctx.config.Cache.Path, "entries": n})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cache: %s\nEntries: %d\n", ctx.config.Cache.Path, n)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every cached digest",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDigestCache(ctx, func(c *cache.SQLiteCache) error {
				if err := c.Clear(); err != nil {
					return err
				}
				ctx.logger.Info("digest cache cleared", "path", ctx.config.Cache.Path)
				fmt.Fprintln(cmd.OutOrStdout(), "Digest cache cleared")
				return nil
			})
		},
	})

	return cmd
}

func withDigestCache(ctx *commandContext, fn func(*cache.SQLiteCache) error) error {
	if ctx.config.Cache.Path == "" {
		return errors.New("no digest cache configured: set cache.path")
	}
	c, err := cache.NewSQLiteCache(ctx.config.Cache.Path)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}
