package cli

import (
	"errors"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/hupe1980/labelstore"
	"github.com/hupe1980/labelstore/internal/fs"
	"github.com/hupe1980/labelstore/model"
	"github.com/hupe1980/labelstore/remote"
)

func (a *app) pullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull [locator]",
		Short: "Resolve a dataset to a local file, downloading it if the cache is stale",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.open(cmd.Context(), args)
			if err != nil {
				return err
			}
			defer sess.Close()

			writef(cmd.OutOrStdout(), "%s\n", sess.LocalPath())
			return nil
		},
	}
}

func (a *app) pushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push [locator]",
		Short: "Upload the local copy of a remote dataset",
		Long: WrapString(`Loads the cached copy of a remote dataset, writes pending
changes and uploads it. The object is overwritten unconditionally; concurrent
writers are not detected.`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.open(cmd.Context(), args)
			if err != nil {
				return err
			}
			defer sess.Close()

			res, err := sess.SaveToRemote(cmd.Context())
			if err != nil {
				return err
			}
			writef(cmd.OutOrStdout(), "uploaded %s etag=%s size=%d\n", res.URI, res.ETag, res.Size)
			return nil
		},
	}
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [locator]",
		Short: "Print entity counts and the annotation type breakdown",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.open(cmd.Context(), args)
			if err != nil {
				return err
			}
			defer sess.Close()

			stats, err := sess.Stats()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			writef(out, "images: %d\n", stats.Images)
			writef(out, "annotations: %d\n", stats.Annotations)
			writef(out, "categories: %d\n", stats.Categories)
			writef(out, "licenses: %d\n", stats.Licenses)

			types := make([]model.AnnotationType, 0, len(stats.AnnotationTypes))
			for t := range stats.AnnotationTypes {
				types = append(types, t)
			}
			slices.Sort(types)
			for _, t := range types {
				writef(out, "  %s: %d\n", t, stats.AnnotationTypes[t])
			}
			return nil
		},
	}
}

func (a *app) resolveCmd() *cobra.Command {
	var download bool

	cmd := &cobra.Command{
		Use:   "resolve <file_name>...",
		Short: "Resolve image references against the dataset location",
		Long: WrapString(`Prints where each image file name points to. With --download,
remote images are fetched into the image cache and the local path is printed.
The dataset is taken from --dataset or DATASET_PATH.`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.open(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer sess.Close()

			out := cmd.OutOrStdout()
			for _, name := range args {
				p := sess.ResolveImagePath(name)
				if download {
					if p, err = sess.ImagePath(cmd.Context(), name); err != nil {
						return err
					}
				}
				writef(out, "%s\t%s\n", name, p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&download, "download", false, WrapString("Download remote images and print the cached path"))
	return cmd
}

func (a *app) cacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cache [locator]",
		Short: "Show the cache location and freshness of a remote dataset",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			locator, err := a.locator(args)
			if err != nil {
				return err
			}
			if !remote.IsRemote(locator) {
				return labelstore.ErrNotRemote
			}
			objects, err := a.objectStore(cmd.Context(), locator)
			if err != nil {
				return err
			}

			syncer := remote.NewSyncer(objects,
				remote.WithLogger(a.logger.Logger),
				remote.WithCacheDir(a.cfg.CacheDir),
				remote.WithRetryPolicy(a.cfg.Retry),
				remote.WithMetrics(a.collector),
			)
			cache := syncer.Cache()

			out := cmd.OutOrStdout()
			writef(out, "root: %s\n", cache.Root())
			writef(out, "dataset: %s\n", cache.DatasetPath(locator))
			writef(out, "metadata: %s\n", cache.MetadataPath(locator))

			meta, err := remote.ReadMetadata(fs.Default, cache.MetadataPath(locator))
			switch {
			case err == nil:
				writef(out, "etag: %s\n", meta.ETag)
				writef(out, "cached_at: %s\n", meta.CachedTime().UTC().Format("2006-01-02T15:04:05Z"))
			case errors.Is(err, os.ErrNotExist):
				writef(out, "etag: -\n")
			default:
				writef(out, "etag: unreadable (%v)\n", err)
			}
			writef(out, "valid: %t\n", syncer.IsCacheValid(cmd.Context(), locator))
			return nil
		},
	}
}
