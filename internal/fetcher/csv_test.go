package fetcher

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexloop/circuitweather/internal/model"
)

func ptrFloat64(v float64) *float64 { return &v }

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.csv")
	rows := []model.ReferenceCircuit{
		{CircuitName: "Autódromo José Carlos Pace", Locality: "São Paulo", Country: "Brazil",
			Latitude: ptrFloat64(-23.7036), Longitude: ptrFloat64(-46.6997),
			CircuitURL: "https://en.wikipedia.org/wiki/Interlagos_Circuit"},
		{CircuitName: "Unlocated Circuit", Locality: "Nowhere", Country: "Atlantis"},
	}

	require.NoError(t, WriteTable(path, rows))
	got, err := ReadTable[model.ReferenceCircuit](path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Autódromo José Carlos Pace", got[0].CircuitName)
	require.NotNil(t, got[0].Latitude)
	assert.InDelta(t, -23.7036, *got[0].Latitude, 0.0001)

	// Empty cells stay nil, never zero.
	assert.Nil(t, got[1].Latitude)
	assert.Nil(t, got[1].Longitude)
}

func TestWriteTableEmptyKeepsHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, WriteTable(path, []model.SourceCircuit{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "circuit_key")

	got, err := ReadTable[model.SourceCircuit](path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteTableAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.csv")
	require.NoError(t, WriteTable(path, []model.SourceCircuit{{CircuitID: 1, ShortName: "Monza"}}))

	// No temp file left next to the output.
	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestDecodeTableIgnoresExtraColumns(t *testing.T) {
	in := "circuit_key,circuit_short_name,country_name,location,extra\n39,Monza,Italy,Monza,whatever\n"
	got, err := DecodeTable[model.SourceCircuit](strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 39, got[0].CircuitID)
	assert.Equal(t, "Monza", got[0].ShortName)
}

func TestDecodeTableEmptyInput(t *testing.T) {
	got, err := DecodeTable[model.SourceCircuit](strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadTableMissingFile(t *testing.T) {
	_, err := ReadTable[model.SourceCircuit](filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}

func TestRequireColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scope.csv")
	require.NoError(t, os.WriteFile(path, []byte("session_key,year,circuit_key\n9158,2024,39\n"), 0o644))

	assert.NoError(t, RequireColumns(path, "session_key", "circuit_key"))
	assert.Error(t, RequireColumns(path, "session_key", "lap_hour_utc"))
}
