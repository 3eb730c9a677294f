// Command harvester runs configuration-driven harvests of paginated sites.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alvmarrod/harvester/internal/config"
	"github.com/alvmarrod/harvester/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what every subcommand shares once the root command has run its
// setup.
type app struct {
	settingsFile string
	debug        bool
	flags        *pflag.FlagSet

	settings *config.Settings
	log      *logrus.Logger
	out      io.Writer
}

func newRootCommand(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:          "harvester",
		Short:        "Configuration-driven multi-page web harvester",
		Long:         `Harvester pages through a site's index, collects article links and stores the extracted article text as JSONL.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetOut(out)

	a.flags = root.PersistentFlags()
	a.flags.StringVar(&a.settingsFile, "settings", "", "settings file (default is ./harvester.yaml)")
	a.flags.BoolVar(&a.debug, "debug", false, "enable debug logging")
	a.flags.String("config-dir", "", "directory holding crawl documents")
	a.flags.String("db", "", "run ledger database, empty string keeps the settings value")

	root.AddCommand(
		newRunCommand(a),
		newTestCommand(a),
		newConfigsCommand(a),
		newReadCommand(a),
		newRequestCommand(a),
		newHistoryCommand(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				return nil
			},
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(a.out, "harvester version %s\n", version.Version)
			},
		},
	)
	return root
}

// setup loads settings and configures the logger.
func (a *app) setup() error {
	v := config.NewViper(a.settingsFile)
	if err := v.BindPFlag("config_dir", a.flags.Lookup("config-dir")); err != nil {
		return fmt.Errorf("failed to bind flag: %w", err)
	}
	if err := v.BindPFlag("db_path", a.flags.Lookup("db")); err != nil {
		return fmt.Errorf("failed to bind flag: %w", err)
	}

	s, err := config.LoadSettings(v)
	if err != nil {
		return err
	}
	a.settings = s

	log, err := newLogger(s, a.debug)
	if err != nil {
		return err
	}
	a.log = log
	return nil
}

func newLogger(s *config.Settings, debug bool) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	if strings.EqualFold(s.LogFormat, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	level, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", s.LogLevel, err)
	}
	if debug {
		level = logrus.DebugLevel
	}
	log.SetLevel(level)
	return log, nil
}

func (a *app) store() (*config.Store, error) {
	return config.NewStore(a.settings.ConfigDir)
}

// loadConfig reads a stored crawl document. A document without its own
// request timeout takes the one from the settings.
func (a *app) loadConfig(name string) (*config.CrawlConfig, error) {
	store, err := a.store()
	if err != nil {
		return nil, err
	}
	cfg, err := store.Load(name)
	if err != nil {
		return nil, err
	}
	if cfg.RequestTimeoutMs == 0 && a.settings.RequestTimeout > 0 {
		cfg.RequestTimeoutMs = int(a.settings.RequestTimeout.Milliseconds())
	}
	return cfg, nil
}
