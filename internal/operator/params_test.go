package operator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	one, err := ParseParams([]byte(`{"symbol":"BTCUSDT","direction":"long","entryPrice":"100","entryVolume":1}`))
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "BTCUSDT", one[0].Symbol)
	assert.True(t, one[0].EntryPrice.Equal(d("100")))
	assert.True(t, one[0].EntryVolume.Equal(d("1")))

	list, err := ParseParams([]byte(` [{"symbol":"BTCUSDT"},{"symbol":"ETHUSDT","dip2Target":"105.5"}] `))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[1].Dip2Target.Equal(d("105.5")))

	for _, bad := range []string{"", "[]", "{", `{"entryPrice":"x"}`} {
		_, err := ParseParams([]byte(bad))
		assert.Error(t, err, bad)
	}
}

func TestLoadParams(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"symbol":"SOLUSDT","direction":"short"}`), 0o600))

	got, err := LoadParams(path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "short", got[0].Direction)

	_, err = LoadParams(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
