package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/otus-rohc/rohc/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Load a config file and print the effective, defaulted configuration",
	Long: `config loads the config file, applies defaults and environment
overrides, validates it, and prints the resulting EngineConfig as YAML —
useful for confirming what a deployment actually resolved to before
wiring a compressor/decompressor pair against it.`,
	Run: func(cmd *cobra.Command, args []string) {
		runConfig()
	},
}

func runConfig() {
	cfg, err := config.Load(configFile)
	if err != nil {
		exitWithError("failed to load config", err)
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	if err := enc.Encode(cfg); err != nil {
		exitWithError("failed to render config", err)
	}
	fmt.Fprintf(os.Stderr, "resolved cid_type=%d mode=%d profiles=%v\n",
		cfg.ResolvedCIDType(), cfg.ResolvedMode(), cfg.ResolvedProfiles())
}
