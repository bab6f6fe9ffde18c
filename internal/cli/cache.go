package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/commentpulse/internal/cache"
	"github.com/ppiankov/commentpulse/internal/model"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage stored analyses",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every stored analysis from the configured cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		return clearCache(cmd.Context(), cmd, cfg.Cache)
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}

func clearCache(ctx context.Context, cmd *cobra.Command, cfg model.CacheConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	store, err := cache.FromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	if store == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "Cache is disabled, nothing to clear")
		return nil
	}
	defer func() { _ = store.Close() }()

	if err := store.Clear(); err != nil {
		return fmt.Errorf("clear %s cache: %w", cfg.Backend, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %s cache\n", cfg.Backend)
	return nil
}
