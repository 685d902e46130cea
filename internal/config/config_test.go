package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/otus-rohc/rohc/pkg/rohc"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "rohc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "rohc:\n  mode: u\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "small", cfg.CIDType)
	require.Equal(t, 16, cfg.MaxContexts)
	require.Equal(t, uint8(4), cfg.WLSBWidth)
	require.Equal(t, []string{"rtp", "udp", "ip", "uncompressed"}, cfg.EnableProfiles)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
rohc:
  cid_type: large
  max_contexts: 64
  mode: o
  wlsb_window_width: 8
  enable_profiles: [rtp, tcp]
  features:
    dump_packets: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "large", cfg.CIDType)
	require.Equal(t, rohc.CIDTypeLarge, cfg.ResolvedCIDType())
	require.Equal(t, rohc.ModeO, cfg.ResolvedMode())
	require.Equal(t, uint8(8), cfg.WLSBWidth)
	require.True(t, cfg.Features.Bitset()&rohc.FeatureDumpPackets != 0)

	ids := cfg.ResolvedProfiles()
	require.Len(t, ids, 2)
	require.Contains(t, ids, rohc.ProfileRTP)
	require.Contains(t, ids, rohc.ProfileTCP)
}

func TestLoadRejectsInvalidCIDType(t *testing.T) {
	path := writeConfig(t, "rohc:\n  cid_type: huge\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsNonPowerOfTwoWindowWidth(t *testing.T) {
	path := writeConfig(t, "rohc:\n  wlsb_window_width: 3\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestResolvedProfilesSkipsUnknownNames(t *testing.T) {
	path := writeConfig(t, "rohc:\n  enable_profiles: [rtp, not-a-real-profile]\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	ids := cfg.ResolvedProfiles()
	require.Equal(t, []rohc.ProfileID{rohc.ProfileRTP}, ids)
}
