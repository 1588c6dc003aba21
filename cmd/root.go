// -- cmd/root.go --
package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/LexiestLeszek/LocalComputerUse/internal/config"
	"github.com/LexiestLeszek/LocalComputerUse/internal/observability"
)

const envPrefix = "LOCALCU"

type contextKey string

const configKey contextKey = "config"

// rootFlags holds persistent flag values for one command tree.
type rootFlags struct {
	cfgFile string
}

// NewRootCommand builds the full command tree.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}
	v := viper.New()

	root := &cobra.Command{
		Use:           "localcu",
		Short:         "localcu clicks its way through a goal using a local vision-language model.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.SetDefaults(v)
			if err := initializeConfig(v, flags.cfgFile); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Debug("Starting localcu", zap.String("version", Version))

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.cfgFile, "config", "c", "", "config file (default is ./config.yaml, then ~/.localcu/config.yaml)")
	pf.String("log-level", "", "log level (debug, info, warn, error)")
	pf.String("display", "", "display backend (desktop, browser)")
	pf.Bool("direct", false, "ground the goal as a single instruction without planning")
	pf.Bool("dry-run", false, "resolve clicks without injecting them")
	for key, name := range map[string]string{
		"logger.level":        "log-level",
		"display.backend":     "display",
		"orchestrator.direct": "direct",
		"executor.dry_run":    "dry-run",
	} {
		_ = v.BindPFlag(key, pf.Lookup(name))
	}

	root.AddCommand(newRunCmd())
	root.AddCommand(newDoCmd())
	root.AddCommand(newGroundCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the command tree with ctx, normally a signal-aware context.
func Execute(ctx context.Context) error {
	root := NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			observability.GetLogger().Error("Command execution failed", zap.Error(err))
		}
		observability.Sync()
		return err
	}
	observability.Sync()
	return nil
}

// initializeConfig reads the config file and environment into v. A missing
// default config file is not an error.
func initializeConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".localcu"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// configFrom returns the configuration loaded by the root command.
func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}
