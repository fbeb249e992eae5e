// Package cmd implements the cve-triage command line: the HTTP service and a one-shot
// enrich-and-export command.
package cmd

import (
	"context"

	"github.com/ortelius/cve-triage/internal/config"
	"github.com/ortelius/cve-triage/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile   string
	debugMode bool

	cfg    config.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:          "cve-triage",
	Short:        "CVE enrichment and triage service",
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = util.InitLogger(debugMode || cfg.Debug)
		logger.Debug("Configuration loaded",
			zap.String("api_base_url", cfg.APIBaseURL),
			zap.Bool("demo_mode", cfg.DemoMode),
			zap.String("remediation_policy", cfg.RemediationPolicy))
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
}

// Execute runs the root command
func Execute() {
	cobra.CheckErr(rootCmd.ExecuteContext(context.Background()))
}
