package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/7oh/landing-go/assetcache"
	"github.com/7oh/landing-go/config"
)

var purgeAll bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the persistent asset cache",
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List caches and their entries",
	Args:  cobra.NoArgs,
	RunE:  runCacheLs,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every cache except the configured one",
	Args:  cobra.NoArgs,
	RunE:  runCachePurge,
}

func openPersistentStorage(cmd *cobra.Command) (*config.Config, assetcache.Storage, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Cache.Driver != config.DriverSQLite {
		return nil, nil, fmt.Errorf("cache driver %q keeps nothing between runs; set cache.driver to %q", cfg.Cache.Driver, config.DriverSQLite)
	}
	storage, err := openStorage(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, storage, nil
}

func runCacheLs(cmd *cobra.Command, args []string) error {
	cfg, storage, err := openPersistentStorage(cmd)
	if err != nil {
		return err
	}
	defer storage.Close()
	return listCaches(cmd.Context(), cmd.OutOrStdout(), storage, cfg.Cache.Name)
}

func listCaches(ctx context.Context, out io.Writer, storage assetcache.Storage, current string) error {
	names, err := storage.Keys(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "no caches")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, name := range names {
		cache, err := assetcache.OpenExisting(ctx, storage, name)
		if err != nil {
			return err
		}
		keys, err := cache.Keys(ctx)
		if err != nil {
			return err
		}
		marker := ""
		if name == current {
			marker = " (current)"
		}

		var total uint64
		rows := make([][]string, 0, len(keys))
		for _, key := range keys {
			e, ok, err := cache.Match(ctx, key)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			total += uint64(e.Size())
			rows = append(rows, []string{e.URL, fmt.Sprint(e.Status), humanize.Bytes(uint64(e.Size())), humanize.Time(e.StoredAt)})
		}

		fmt.Fprintf(tw, "%s%s\t%s\t%s\n", name, marker, humanize.Comma(int64(len(rows)))+" entries", humanize.Bytes(total))
		for _, r := range rows {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", r[0], r[1], r[2], r[3])
		}
	}
	return tw.Flush()
}

func runCachePurge(cmd *cobra.Command, args []string) error {
	cfg, storage, err := openPersistentStorage(cmd)
	if err != nil {
		return err
	}
	defer storage.Close()

	keep := cfg.Cache.Name
	if purgeAll {
		keep = ""
	}
	evicted, err := assetcache.EvictExcept(cmd.Context(), storage, keep)
	for _, name := range evicted {
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", name)
	}
	if err != nil {
		return err
	}
	if len(evicted) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to purge")
	}
	return nil
}
