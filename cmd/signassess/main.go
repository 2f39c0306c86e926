package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ayusman/signassess/internal/config"
	"github.com/ayusman/signassess/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// options are the flags shared by every command.
type options struct {
	configFile string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "signassess",
		Short:        "SignAssess - sign language assessment widget",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, false)
		},
	}
	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "config file (default signassess.yaml)")

	root.AddCommand(
		newServeCmd(opts),
		newSummarizeCmd(),
		newSessionsCmd(opts),
	)
	return root
}

// load reads the configuration and builds the logger it describes.
func load(opts *options) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(viper.New(), opts.configFile)
	if err != nil {
		return nil, nil, err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log settings: %w", err)
	}
	return cfg, log, nil
}
