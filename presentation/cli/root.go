// Package cli is the ai_registry command line.
package cli

import (
	"fmt"
	"os"

	"ai_registry/infrastructure/config"
	"ai_registry/infrastructure/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ai_registry",
	Short: "Catalog the interactive elements of a web page.",
	Long: `ai_registry finds every visible, interactable element of a page, gives it a
stable target id and keeps that registry current while the page changes.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// app holds what initConfig produced for the running command.
var app struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// assigned here rather than in the literal: initConfig refers to rootCmd
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return initConfig()
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.ai_registry.yaml)")
	flags.StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	flags.Bool("headful", false, "Show the browser window")
	flags.String("cdp", "", "Attach to a running Chrome at this debugger URL instead of launching one")
	flags.String("sync", "", "Sync driver: none, http, file or sqlite")
	flags.String("sync-url", "", "Registry endpoint for the http sync driver")
	flags.Bool("no-occlusion", false, "Skip the hit-test occlusion check")
}

// flagKeys binds persistent flags to configuration keys.
var flagKeys = map[string]string{
	"loglevel": config.KeyLogLevel,
	"cdp":      config.KeyCDPURL,
	"sync":     config.KeySyncDriver,
	"sync-url": config.KeySyncURL,
}

// initConfig reads in config file and ENV variables if set.
func initConfig() error {
	v := viper.New()
	flags := rootCmd.PersistentFlags()
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return err
		}
	}

	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}

	// negated flags do not map onto a viper default cleanly
	if headful, _ := flags.GetBool("headful"); headful {
		cfg.Browser.Headless = false
	}
	if off, _ := flags.GetBool("no-occlusion"); off {
		cfg.OcclusionCheck = false
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}

	app.cfg = cfg
	app.logger = logger
	return nil
}
