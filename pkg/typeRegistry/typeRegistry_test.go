package typeRegistry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_PlasmDefinitions(t *testing.T) {
	reg := PlasmDefinitions()
	require.NotNil(t, reg)
	assert.Greater(t, reg.Len(), 0)

	def, ok := reg.Get("SmartContract")
	require.True(t, ok)
	assert.Contains(t, string(def), "Evm")

	_, ok = reg.Get("DoesNotExist")
	assert.False(t, ok)
}

func Test_TypeRegistryImmutable(t *testing.T) {
	source := map[string]json.RawMessage{
		"EraIndex": json.RawMessage(`"u32"`),
	}
	reg := NewTypeRegistry(source)

	// mutating the input map must not leak into the registry
	source["EraIndex"] = json.RawMessage(`"u64"`)
	source["Extra"] = json.RawMessage(`"u8"`)

	def, ok := reg.Get("EraIndex")
	require.True(t, ok)
	assert.Equal(t, `"u32"`, string(def))
	assert.Equal(t, 1, reg.Len())

	// neither may mutating a returned definition
	def[1] = 'x'
	again, _ := reg.Get("EraIndex")
	assert.Equal(t, `"u32"`, string(again))
}

func Test_ParseTypeRegistry(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		_, err := ParseTypeRegistry([]byte("  "))
		require.Error(t, err)
	})

	t.Run("NotAnObject", func(t *testing.T) {
		_, err := ParseTypeRegistry([]byte(`["a"]`))
		require.Error(t, err)
	})

	t.Run("Null", func(t *testing.T) {
		_, err := ParseTypeRegistry([]byte(`null`))
		require.Error(t, err)
	})

	t.Run("Valid", func(t *testing.T) {
		reg, err := ParseTypeRegistry([]byte(`{"B": "u8", "A": {"x": "u32"}}`))
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, reg.Names())
	})
}

func Test_LoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "types.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Balance": "u128"}`), 0o600))

	reg, err := LoadFromFile(path)
	require.NoError(t, err)
	def, ok := reg.Get("Balance")
	require.True(t, ok)
	assert.Equal(t, `"u128"`, string(def))

	_, err = LoadFromFile(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func Test_Merge(t *testing.T) {
	base := NewTypeRegistry(map[string]json.RawMessage{
		"Address":  json.RawMessage(`"MultiAddress"`),
		"EraIndex": json.RawMessage(`"u32"`),
	})
	override := NewTypeRegistry(map[string]json.RawMessage{
		"EraIndex": json.RawMessage(`"u64"`),
	})

	merged := Merge(base, override, nil)
	assert.Equal(t, 2, merged.Len())

	def, _ := merged.Get("EraIndex")
	assert.Equal(t, `"u64"`, string(def))

	baseDef, _ := base.Get("EraIndex")
	assert.Equal(t, `"u32"`, string(baseDef))
}

func Test_MarshalJSON(t *testing.T) {
	reg := NewTypeRegistry(map[string]json.RawMessage{
		"EraIndex": json.RawMessage(`"u32"`),
	})
	data, err := json.Marshal(reg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"EraIndex":"u32"}`, string(data))

	var nilReg *TypeRegistry
	data, err = nilReg.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}
