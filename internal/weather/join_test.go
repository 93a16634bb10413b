package weather

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexloop/circuitweather/internal/fetcher"
	"github.com/apexloop/circuitweather/internal/model"
)

func ptrFloat64(v float64) *float64 { return &v }
func ptrTime(v time.Time) *time.Time { return &v }

const monzaURL = "https://en.wikipedia.org/wiki/Monza_Circuit"

func writeHourly(t *testing.T, root, folder string, year int, rows []model.HourlyRow) {
	t.Helper()
	dir := filepath.Join(root, folder)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, fmt.Sprintf("%d.csv", year))
	require.NoError(t, fetcher.WriteTable(path, rows))
}

func hourlyRow(ts time.Time, temp *float64) model.HourlyRow {
	return model.HourlyRow{
		Year:  ts.Year(),
		Month: int(ts.Month()),
		Day:   ts.Day(),
		Hour:  ts.Hour(),
		Temp:  temp,
	}
}

func contextLap(driver, lap int, bucket *time.Time) model.ContextLap {
	return model.ContextLap{
		LapRecord:  model.LapRecord{SessionID: 9158, DriverNumber: driver, LapNumber: lap},
		HourBucket: bucket,
		CircuitID:  39,
	}
}

func newTestJoiner(t *testing.T, root string) *Joiner {
	t.Helper()
	circuits := []model.CircuitMapping{
		{CircuitID: 39, SourceShortName: "Monza", RefCircuitURL: monzaURL},
	}
	stations := []model.CircuitStationMapping{
		{CircuitURL: monzaURL, StationID: "16066", CircuitName: "Autodromo Nazionale di Monza"},
	}
	return NewJoiner(circuits, stations, NewStore(root))
}

func TestStationDirLocatesByPrefix(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "16066__italy__monza"), 0o755))

	store := NewStore(root)
	dir, err := store.StationDir("16066")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "16066__italy__monza"), dir)

	_, err = store.StationDir("00000")
	assert.Error(t, err)
}

func TestJoinSessionMatchesByHourBucket(t *testing.T) {
	root := t.TempDir()
	h13 := time.Date(2024, 9, 1, 13, 0, 0, 0, time.UTC)
	h14 := h13.Add(time.Hour)
	writeHourly(t, root, "16066__italy__monza", 2024, []model.HourlyRow{
		hourlyRow(h13, ptrFloat64(27.5)),
		hourlyRow(h14, ptrFloat64(26.9)),
	})

	j := newTestJoiner(t, root)
	out, st, err := j.JoinSession(9158, []model.ContextLap{
		contextLap(44, 1, ptrTime(h13)),
		contextLap(44, 2, ptrTime(h14)),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, 0, st.MissingWeather)
	assert.Equal(t, "16066", st.StationID)
	assert.Equal(t, monzaURL, st.CircuitURL)

	require.NotNil(t, out[0].Temp)
	assert.Equal(t, 27.5, *out[0].Temp)
	assert.Equal(t, 26.9, *out[1].Temp)
	for _, lap := range out {
		assert.Equal(t, "16066", lap.StationID)
		assert.Equal(t, monzaURL, lap.RefCircuitURL)
	}
}

func TestJoinSessionDropsLapsWithoutWeather(t *testing.T) {
	root := t.TempDir()
	h13 := time.Date(2024, 9, 1, 13, 0, 0, 0, time.UTC)
	writeHourly(t, root, "16066__italy__monza", 2024, []model.HourlyRow{
		hourlyRow(h13, ptrFloat64(27.5)),
		hourlyRow(h13.Add(time.Hour), nil), // row exists but all fields null
	})

	j := newTestJoiner(t, root)
	out, st, err := j.JoinSession(9158, []model.ContextLap{
		contextLap(44, 1, ptrTime(h13)),
		contextLap(44, 2, ptrTime(h13.Add(time.Hour))),   // all-null observation
		contextLap(44, 3, ptrTime(h13.Add(5*time.Hour))), // no matching row
		contextLap(44, 4, nil),                           // no bucket at all
	})
	require.NoError(t, err)

	require.Len(t, out, 1)
	assert.Equal(t, 1, out[0].LapNumber)
	assert.Equal(t, 3, st.MissingWeather)
}

func TestJoinSessionSpansYears(t *testing.T) {
	root := t.TempDir()
	dec := time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	writeHourly(t, root, "16066__italy__monza", 2023, []model.HourlyRow{hourlyRow(dec, ptrFloat64(5))})
	writeHourly(t, root, "16066__italy__monza", 2024, []model.HourlyRow{hourlyRow(jan, ptrFloat64(4))})

	j := newTestJoiner(t, root)
	out, _, err := j.JoinSession(9158, []model.ContextLap{
		contextLap(1, 1, ptrTime(dec)),
		contextLap(1, 2, ptrTime(jan)),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 5.0, *out[0].Temp)
	assert.Equal(t, 4.0, *out[1].Temp)
}

func TestJoinSessionFailures(t *testing.T) {
	root := t.TempDir()
	j := newTestJoiner(t, root)
	h13 := time.Date(2024, 9, 1, 13, 0, 0, 0, time.UTC)

	t.Run("no laps", func(t *testing.T) {
		_, _, err := j.JoinSession(1, nil)
		assert.Error(t, err)
	})

	t.Run("circuit not in mapping", func(t *testing.T) {
		lap := contextLap(1, 1, ptrTime(h13))
		lap.CircuitID = 999
		_, _, err := j.JoinSession(1, []model.ContextLap{lap})
		assert.Error(t, err)
	})

	t.Run("no hour buckets", func(t *testing.T) {
		_, _, err := j.JoinSession(1, []model.ContextLap{contextLap(1, 1, nil)})
		assert.Error(t, err)
	})

	t.Run("hourly folder missing", func(t *testing.T) {
		_, _, err := j.JoinSession(1, []model.ContextLap{contextLap(1, 1, ptrTime(h13))})
		assert.Error(t, err)
	})
}
