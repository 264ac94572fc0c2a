package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	assert.Equal(t, 3, c.Len())
	assert.True(t, c.Contains("brain_dumpster_monthly_premium"))
	assert.True(t, c.Contains("brain_dumpster_yearly_premium"))
	assert.True(t, c.Contains("brain_dumpster_lifetime_premium"))
	assert.False(t, c.Contains("brain_dumpster_weekly_premium"))

	assert.True(t, c.IsLifetime("brain_dumpster_lifetime_premium"))
	assert.False(t, c.IsLifetime("brain_dumpster_monthly_premium"))
	assert.False(t, c.IsLifetime(""))
}

func TestNewRejectsEmptyProductID(t *testing.T) {
	_, err := New([]Product{{ID: ""}})
	assert.Error(t, err)
}

func TestNewRejectsSecondLifetimeProduct(t *testing.T) {
	_, err := New([]Product{
		{ID: "first_lifetime", Lifetime: true},
		{ID: "second_lifetime", Lifetime: true},
	})
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	content := `{"products":[{"id":"app_monthly"},{"id":"app_forever","lifetime":true}]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.IsLifetime("app_forever"))
}

func TestLoadFromFileEmptyPathUsesDefault(t *testing.T) {
	c, err := LoadFromFile("")
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"products":[]}`), 0o644))
	_, err = LoadFromFile(empty)
	assert.Error(t, err)
}
