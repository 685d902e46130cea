package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otus-rohc/rohc/internal/config"
	"github.com/otus-rohc/rohc/pkg/rohc"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the profiles a config file enables",
	Long:  `profiles loads the config file's enable_profiles list and prints each resolved profile ID and name.`,
	Run: func(cmd *cobra.Command, args []string) {
		runProfiles()
	},
}

func runProfiles() {
	cfg, err := config.Load(configFile)
	if err != nil {
		exitWithError("failed to load config", err)
	}
	ids := cfg.ResolvedProfiles()
	if len(ids) == 0 {
		fmt.Println("no profiles enabled")
		return
	}
	for _, id := range ids {
		fmt.Printf("0x%04X  %s\n", uint16(id), id.String())
	}
}

var _ = rohc.ProfileUncompressed // keep rohc imported for profile ID formatting above
