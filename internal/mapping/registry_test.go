package mapping

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistry_LoadMissingFileIsNotError(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "missing.json"), nil, zap.NewNop())
	require.NoError(t, r.Load())
	assert.Empty(t, r.Entries())
}

func TestRegistry_LoadAndLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mappings.json")
	body := `[{"venue_a_market_id":"KXSB-26-NE","venue_b_slug":"super-bowl-champion-2026"}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	r := New(path, nil, zap.NewNop())
	require.NoError(t, r.Load())

	m, ok := r.Lookup("KXSB-26-NE")
	require.True(t, ok)
	assert.False(t, m.TokensResolved())
	assert.Equal(t, "KXSB-26-NE", m.VenueAID)

	_, ok = r.Lookup("no-such-id")
	assert.False(t, ok)
}
