package cli

import (
	"context"
	"fmt"

	"github.com/bscott/mailcloud/internal/cache"
	"github.com/bscott/mailcloud/internal/config"
)

func cachePath(cfg *config.Config) (string, error) {
	if cfg.Cache.Path != "" {
		return cfg.Cache.Path, nil
	}
	return config.DefaultCachePath()
}

func openCache(cfg *config.Config) (*cache.Store, string, error) {
	path, err := cachePath(cfg)
	if err != nil {
		return nil, "", err
	}
	store, err := cache.Open(path, cacheNamespace(cfg))
	if err != nil {
		return nil, "", err
	}
	return store, path, nil
}

func (c *CacheInfoCmd) Run(ctx *Context) error {
	store, path, err := openCache(ctx.Config)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Len(context.Background())
	if err != nil {
		return err
	}

	namespace := cacheNamespace(ctx.Config)
	if ctx.Formatter.JSON {
		return ctx.Formatter.PrintJSON(map[string]any{
			"path":      path,
			"namespace": namespace,
			"enabled":   ctx.Config.Cache.Enabled,
			"entries":   n,
		})
	}

	w := ctx.Formatter.Writer
	fmt.Fprintf(w, "Cache file: %s\n", path)
	fmt.Fprintf(w, "Account:    %s\n", namespace)
	fmt.Fprintf(w, "Entries:    %d\n", n)
	if !ctx.Config.Cache.Enabled {
		fmt.Fprintln(w, ctx.Formatter.MutedText("Cache is disabled; enable it with 'mailcloud config set cache.enabled true' or --cache"))
	}
	return nil
}

func (c *CacheClearCmd) Run(ctx *Context) error {
	store, _, err := openCache(ctx.Config)
	if err != nil {
		return err
	}
	defer store.Close()

	bg := context.Background()
	n, err := store.Len(bg)
	if err != nil {
		return err
	}
	if err := store.Clear(bg); err != nil {
		return err
	}

	ctx.Formatter.PrintSuccess(fmt.Sprintf("Removed %d cached message(s) for %s", n, cacheNamespace(ctx.Config)))
	return nil
}
