package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadSupportedAssets(t *testing.T) {
	t.Run("NormalizesAndSkipsBlanks", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "supported_assets")
		err := os.WriteFile(path, []byte("btc\nEth\n\n  sol  \n"), 0o644)
		assert.NoError(t, err)

		assets, err := LoadSupportedAssets(path)

		assert.NoError(t, err)
		assert.Equal(t, []string{"BTC", "ETH", "SOL"}, assets)
	})

	t.Run("MissingFileIsAnError", func(t *testing.T) {
		_, err := LoadSupportedAssets(filepath.Join(t.TempDir(), "does-not-exist"))

		assert.Error(t, err)
	})
}
