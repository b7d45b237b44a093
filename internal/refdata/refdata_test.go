package refdata

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestProviderLoadsCodesets(t *testing.T) {
	dir := t.TempDir()
	commodities := writeFile(t, dir, "commodities.csv", "12099190,Seeds\n85171200,Phones\n")
	countries := writeFile(t, dir, "countries.csv", "DE\nFR\n# comment line\nNL\n")

	p, err := NewProvider(Config{
		CommodityCodesPath: commodities,
		CountryCodesPath:   countries,
	}, slog.Default())
	require.NoError(t, err)

	ref := p.Snapshot()
	assert.Len(t, ref.CommodityCodes, 2)
	assert.Contains(t, ref.CommodityCodes, "12099190")
	assert.Len(t, ref.CountryCodes, 3)
	assert.Contains(t, ref.CountryCodes, "NL")
}

func TestProviderMissingFileYieldsEmptySet(t *testing.T) {
	p, err := NewProvider(Config{
		CommodityCodesPath: filepath.Join(t.TempDir(), "absent.csv"),
	}, slog.Default())
	require.NoError(t, err)

	ref := p.Snapshot()
	assert.Empty(t, ref.CommodityCodes)
	assert.Empty(t, ref.CountryCodes)
}

func TestProviderRefreshSwapsSnapshot(t *testing.T) {
	dir := t.TempDir()
	commodities := writeFile(t, dir, "commodities.csv", "12099190\n")

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	p, err := NewProvider(Config{
		CommodityCodesPath: commodities,
		RefreshInterval:    time.Hour,
	}, slog.Default(), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	require.Len(t, p.Snapshot().CommodityCodes, 1)

	writeFile(t, dir, "commodities.csv", "12099190\n85171200\n")

	// Inside the interval the gate suppresses the reload.
	attempted, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, attempted)
	assert.Len(t, p.Snapshot().CommodityCodes, 1)

	now = now.Add(time.Hour + time.Minute)
	attempted, err = p.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, attempted)
	assert.Len(t, p.Snapshot().CommodityCodes, 2)
}

func TestProviderFailedRefreshBacksOff(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "commodities.csv", "12099190\n")

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	p, err := NewProvider(Config{
		CommodityCodesPath: path,
		RefreshInterval:    time.Hour,
		FailureBackoff:     10 * time.Minute,
	}, slog.Default(), WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	// Replace the file with an unreadable directory to force a load error.
	require.NoError(t, os.Remove(path))
	require.NoError(t, os.Mkdir(path, 0o700))

	now = now.Add(2 * time.Hour)
	attempted, err := p.Refresh(context.Background())
	assert.True(t, attempted)
	assert.Error(t, err)

	// The old snapshot survives a failed reload.
	assert.Len(t, p.Snapshot().CommodityCodes, 1)

	// The failure backoff gates the next attempt.
	now = now.Add(time.Minute)
	attempted, err = p.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, attempted)
}
