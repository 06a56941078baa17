package catalog_test

import (
	"github.com/planificaia/aliada/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestDefault(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	require.Equal(t, []string{"Perú", "México", "Colombia", "Argentina", "Chile", "España"}, c.Regions())
	require.Equal(t, []string{"Lima", "Arequipa", "Cusco"}, c.Subregions("Perú"))
	require.Contains(t, c.Localities("Perú", "Lima"), "Lima")

	place, ok := c.Find("Lima")
	require.True(t, ok)
	require.Equal(t, catalog.Place{Region: "Perú", Subregion: "Lima", Locality: "Lima"}, place)
	require.Equal(t, "Lima (Lima, Perú)", place.Label())

	all := c.AllLocalities()
	require.Contains(t, all, "Medellín")
	seen := map[string]bool{}
	for _, l := range all {
		require.False(t, seen[l], "duplicate locality %s", l)
		seen[l] = true
	}
	// Spanish collation sorts accented initials next to their base letter.
	assert.Less(t, indexOf(all, "Alcalá de Henares"), indexOf(all, "Bogotá"))
	assert.Less(t, indexOf(all, "Málaga"), indexOf(all, "Zapopan"))
}

func TestCatalog_unknownKeys(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	require.Empty(t, c.Subregions("Atlántida"))
	require.NotNil(t, c.Subregions("Atlántida"))
	require.Empty(t, c.Localities("Perú", "Atlántida"))
	require.Empty(t, c.Localities("Atlántida", "Lima"))
	_, ok := c.Find("Atlántida")
	require.False(t, ok)
}

func TestCatalog_returnsCopies(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)

	localities := c.Localities("Perú", "Lima")
	localities[0] = "mutated"
	require.Equal(t, "Lima", c.Localities("Perú", "Lima")[0])
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{name: "empty", data: "", wantErr: true},
		{name: "malformed", data: "regions: [", wantErr: true},
		{name: "duplicate region", data: `
regions:
  - name: Perú
  - name: Perú`, wantErr: true},
		{name: "blank locality", data: `
regions:
  - name: Perú
    subregions:
      - name: Lima
        localities: [""]`, wantErr: true},
		{name: "valid", data: `
regions:
  - name: Perú
    subregions:
      - name: Lima
        localities: [Lima]`, wantErr: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Load([]byte(tt.data))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
