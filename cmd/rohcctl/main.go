// Command rohcctl is an external collaborator around the ROHC engine in
// pkg/rohc: it constructs compressor/decompressor pairs from a config
// file, demonstrates the round-trip against synthetic packets, lists
// the profile registry, and dumps effective engine configuration. It
// never reaches into engine internals beyond the public pkg/rohc API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Global flags
var configFile string

var rootCmd = &cobra.Command{
	Use:     "rohcctl",
	Short:   "rohcctl - ROHC compressor/decompressor engine demo and inspection tool",
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "rohc.yaml", "engine config file path")
	rootCmd.AddCommand(roundtripCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func exitWithError(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	}
	os.Exit(1)
}
