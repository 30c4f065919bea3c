package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/appshelf"
	"github.com/ZaguanLabs/appshelf/internal/config"
	"github.com/ZaguanLabs/appshelf/internal/logging"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	cfgFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "appshelf",
		Short: appshelf.Description,
		Long: `appshelf fronts the app catalog: it forwards /api calls to the origin
with CORS, and translates store copy through a cached translation backend.

Examples:
  appshelf serve --config appshelf.yaml
  appshelf translate --locale es-MX "Free to play"
  appshelf translate --lang DE --bulk --cache-file de.json < strings.txt
  appshelf locale pt-BR nb-NO xx-YY`,
		Version:       appshelf.FullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.cfgFile, "config", "", "config file (default ./appshelf.yaml if present)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "override log.level")

	root.AddCommand(
		newServeCmd(flags),
		newTranslateCmd(flags),
		newLocaleCmd(),
		newCacheCmd(flags),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads configuration and applies flag overrides.
func (f *rootFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.cfgFile)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	return cfg, nil
}

// toolLogger is used by the one-shot commands. Without a log file it writes
// to the command's stderr so that stdout carries only results.
func toolLogger(cmd *cobra.Command, cfg *config.Config) (*logrus.Logger, error) {
	logger, err := logging.InitLogger(logOptions(cfg))
	if err != nil {
		return nil, err
	}
	if cfg.Log.File == "" {
		logger.SetOutput(cmd.ErrOrStderr())
	}
	return logger, nil
}

func logOptions(cfg *config.Config) logging.Options {
	return logging.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	}
}
