// Package config loads the engine's ambient configuration using viper: a
// single YAML root key unmarshaled via mapstructure, environment
// overrides on top, defaults applied before validation.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/otus-rohc/rohc/pkg/rohc"
)

// EngineConfig is the "Configuration (recognized options)" table from §6:
// wlsb_window_width, enable_profiles, the features bitset, CID type/width,
// max_contexts, and feedback scheduling, plus the logging/CLI ambient
// settings the teacher's GlobalConfig carries alongside its own core
// settings.
type EngineConfig struct {
	CIDType      string   `mapstructure:"cid_type"` // "small" | "large"
	MaxContexts  int      `mapstructure:"max_contexts"`
	Mode         string   `mapstructure:"mode"` // "u" | "o" | "r"
	WLSBWidth    uint8    `mapstructure:"wlsb_window_width"`
	EnableProfiles []string `mapstructure:"enable_profiles"`
	Features     FeaturesConfig `mapstructure:"features"`
	ReorderRatio uint8    `mapstructure:"reorder_ratio"`
	FeedbackInterval string `mapstructure:"feedback_interval"` // e.g. "200ms"
	Log          LogConfig `mapstructure:"log"`
}

// FeaturesConfig mirrors rohc.Features as individually named booleans, the
// way a YAML file names bitset members rather than passing a raw integer.
type FeaturesConfig struct {
	TimeBasedRefreshes bool `mapstructure:"time_based_refreshes"`
	NoIPChecksums      bool `mapstructure:"no_ip_checksums"`
	Compat16x          bool `mapstructure:"compat_16x"`
	DumpPackets        bool `mapstructure:"dump_packets"`
}

// Bitset converts FeaturesConfig into the rohc.Features value
// SetFeatures/New accept, so a deployment can be driven by file or by code
// using the same bitset.
func (f FeaturesConfig) Bitset() rohc.Features {
	var out rohc.Features
	if f.TimeBasedRefreshes {
		out |= rohc.FeatureTimeBasedRefreshes
	}
	if f.NoIPChecksums {
		out |= rohc.FeatureNoIPChecksums
	}
	if f.Compat16x {
		out |= rohc.FeatureCompat16x
	}
	if f.DumpPackets {
		out |= rohc.FeatureDumpPackets
	}
	return out
}

// LogConfig controls internal/rohclog's trace sink.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug / info / warn / error
	Format string `mapstructure:"format"` // json / text
	File   struct {
		Enabled    bool `mapstructure:"enabled"`
		Path       string `mapstructure:"path"`
		MaxSizeMB  int  `mapstructure:"max_size_mb"`
		MaxAgeDays int  `mapstructure:"max_age_days"`
		MaxBackups int  `mapstructure:"max_backups"`
		Compress   bool `mapstructure:"compress"`
	} `mapstructure:"file"`
}

type configRoot struct {
	ROHC EngineConfig `mapstructure:"rohc"`
}

// Load reads path (a YAML file rooted at a top-level `rohc:` key, env
// overrides via ROHC_-prefixed variables) and returns a validated
// EngineConfig with defaults applied.
func Load(path string) (*EngineConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg := root.ROHC
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rohc.cid_type", "small")
	v.SetDefault("rohc.max_contexts", 16)
	v.SetDefault("rohc.mode", "u")
	v.SetDefault("rohc.wlsb_window_width", 4)
	v.SetDefault("rohc.enable_profiles", []string{"rtp", "udp", "ip", "uncompressed"})
	v.SetDefault("rohc.reorder_ratio", 0)
	v.SetDefault("rohc.feedback_interval", "200ms")
	v.SetDefault("rohc.log.level", "info")
	v.SetDefault("rohc.log.format", "text")
	v.SetDefault("rohc.log.file.enabled", false)
	v.SetDefault("rohc.log.file.max_size_mb", 50)
	v.SetDefault("rohc.log.file.max_age_days", 14)
	v.SetDefault("rohc.log.file.max_backups", 3)
}

func (cfg *EngineConfig) validate() error {
	switch cfg.CIDType {
	case "small", "large":
	default:
		return fmt.Errorf("invalid cid_type: %q (must be small/large)", cfg.CIDType)
	}
	switch cfg.Mode {
	case "u", "o", "r":
	default:
		return fmt.Errorf("invalid mode: %q (must be u/o/r)", cfg.Mode)
	}
	switch cfg.WLSBWidth {
	case 1, 2, 4, 8, 16, 32, 64:
	default:
		return fmt.Errorf("invalid wlsb_window_width: %d (must be a power of two 1-64)", cfg.WLSBWidth)
	}
	return nil
}

// ResolvedCIDType maps the YAML string onto the engine's rohc.CIDType.
func (cfg *EngineConfig) ResolvedCIDType() rohc.CIDType {
	if cfg.CIDType == "large" {
		return rohc.CIDTypeLarge
	}
	return rohc.CIDTypeSmall
}

// ResolvedMode maps the YAML string onto the engine's rohc.Mode.
func (cfg *EngineConfig) ResolvedMode() rohc.Mode {
	switch cfg.Mode {
	case "o":
		return rohc.ModeO
	case "r":
		return rohc.ModeR
	default:
		return rohc.ModeU
	}
}

// ResolvedProfiles maps the configured profile names onto rohc.ProfileID,
// silently skipping names this build doesn't recognize (same
// degrade-gracefully policy as Registry.EnableProfiles).
func (cfg *EngineConfig) ResolvedProfiles() []rohc.ProfileID {
	names := map[string]rohc.ProfileID{
		"uncompressed": rohc.ProfileUncompressed,
		"rtp":          rohc.ProfileRTP,
		"udp":          rohc.ProfileUDP,
		"esp":          rohc.ProfileESP,
		"ip":           rohc.ProfileIP,
		"tcp":          rohc.ProfileTCP,
		"udplite":      rohc.ProfileUDPLite,
		"rohcv2ip":     rohc.ProfileROHCv2IP,
		"rohcv2ipudp":  rohc.ProfileROHCv2IPUDP,
		"rohcv2ipudprtp": rohc.ProfileROHCv2IPUDPRTP,
	}
	out := make([]rohc.ProfileID, 0, len(cfg.EnableProfiles))
	for _, name := range cfg.EnableProfiles {
		if id, ok := names[strings.ToLower(name)]; ok {
			out = append(out, id)
		}
	}
	return out
}
