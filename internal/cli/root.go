package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hupe1980/labelstore"
	"github.com/hupe1980/labelstore/metrics"
	"github.com/hupe1980/labelstore/remote"
)

const (
	Version = "0.1.0"
)

// app carries the state shared by the commands of one invocation.
type app struct {
	viper   *viper.Viper
	objects ObjectStoreFactory

	cfg       Config
	logger    *labelstore.Logger
	collector metrics.Collector
	victoria  *metrics.Victoria
}

// NewRootCmd returns the labelstore command tree. objects creates the
// backend for remote locators; nil selects DefaultObjectStore.
func NewRootCmd(objects ObjectStoreFactory) *cobra.Command {
	if objects == nil {
		objects = DefaultObjectStore
	}
	a := &app{viper: viper.New(), objects: objects}

	root := &cobra.Command{
		Use:   "labelstore",
		Short: "Inspect and synchronize COCO annotation datasets",
		Long: fmt.Sprintf(`labelstore (v%s)

Loads COCO annotation datasets from local disk or S3-compatible object
stores, keeps a validated local cache and uploads local changes back.

All flags can be set via environment variables of the form
LABELSTORE_<FLAG> (e.g. LABELSTORE_CACHE_DIR=/tmp/cache).`, Version),
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	setupFlags(root)

	root.AddCommand(
		a.pullCmd(),
		a.pushCmd(),
		a.statsCmd(),
		a.resolveCmd(),
		a.cacheCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number of labelstore",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "labelstore v%s\n", Version)
			},
		},
	)
	return root
}

// Execute runs the command tree against the process arguments.
func Execute() error {
	return NewRootCmd(nil).Execute()
}

// setup binds the flags to viper and resolves the configuration.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	initConfig(a.viper)
	if err := a.viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	cfg, err := loadConfig(a.viper)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.logger()
	a.collector = metrics.Noop{}
	if cfg.MetricsOut != "" {
		a.victoria = metrics.NewVictoria()
		a.collector = a.victoria
	}
	return nil
}

// teardown writes collected metrics.
func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	if a.victoria == nil {
		return nil
	}
	if a.cfg.MetricsOut == "-" {
		a.victoria.WritePrometheus(cmd.ErrOrStderr())
		return nil
	}
	f, err := os.Create(a.cfg.MetricsOut)
	if err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	a.victoria.WritePrometheus(f)
	return f.Close()
}

// locator picks the dataset from the first argument or the configuration.
func (a *app) locator(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if a.cfg.Dataset != "" {
		return a.cfg.Dataset, nil
	}
	return "", fmt.Errorf("no dataset given: pass a locator, --dataset or DATASET_PATH")
}

func (a *app) objectStore(ctx context.Context, locator string) (remote.ObjectStore, error) {
	if !remote.IsRemote(locator) {
		return nil, nil
	}
	return a.objects(ctx, a.cfg)
}

// open opens the dataset named by args.
func (a *app) open(ctx context.Context, args []string) (*labelstore.Session, error) {
	locator, err := a.locator(args)
	if err != nil {
		return nil, err
	}
	objects, err := a.objectStore(ctx, locator)
	if err != nil {
		return nil, err
	}
	opts := a.cfg.sessionOptions(a.logger, a.collector)
	if objects != nil {
		opts = append(opts, labelstore.WithObjectStore(objects))
	}
	return labelstore.Open(ctx, locator, opts...)
}

func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
