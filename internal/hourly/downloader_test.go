package hourly

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexloop/circuitweather/internal/fetcher"
	"github.com/apexloop/circuitweather/internal/model"
	"github.com/apexloop/circuitweather/internal/probe"
	"github.com/apexloop/circuitweather/internal/resilience"
	"github.com/apexloop/circuitweather/internal/textnorm"
)

func TestFolderAliases(t *testing.T) {
	mappings := []model.CircuitStationMapping{
		{StationID: "16066", Country: "Italy", Locality: "Monza", CircuitName: "Monza", DistanceKM: 4.2},
		// Same station serving a second circuit, further away: ignored.
		{StationID: "16066", Country: "Italy", Locality: "Imola", CircuitName: "Imola", DistanceKM: 80.1},
		{StationID: "07650", Country: "France", Locality: "Le Castellet", CircuitName: "Paul Ricard", DistanceKM: 12.0},
	}

	aliases := FolderAliases(mappings, textnorm.Slug)
	require.Len(t, aliases, 2)
	assert.Equal(t, "16066__italy__monza", aliases["16066"])
	assert.Equal(t, "07650__france__le-castellet", aliases["07650"])
}

func TestFolderAliasesTieBreaksByCircuitName(t *testing.T) {
	mappings := []model.CircuitStationMapping{
		{StationID: "X", Country: "A", Locality: "Zed", CircuitName: "Zeta", DistanceKM: 5},
		{StationID: "X", Country: "A", Locality: "Alf", CircuitName: "Alpha", DistanceKM: 5},
	}
	aliases := FolderAliases(mappings, textnorm.Slug)
	assert.Equal(t, "X__a__alf", aliases["X"])
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(data)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func newTestDownloader(t *testing.T, handler http.Handler, keepRaw bool) (*Downloader, string, string) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = 1
	client := fetcher.New(fetcher.Options{
		Timeout:    5 * time.Second,
		RatePerSec: 100,
		Retry:      retry,
	})

	rawDir := filepath.Join(t.TempDir(), "raw")
	outDir := filepath.Join(t.TempDir(), "out")
	dl := NewDownloader(client, probe.New(client, srv.URL), rawDir, outDir, keepRaw)
	return dl, rawDir, outDir
}

func TestFetchDownloadsAndUnpacks(t *testing.T) {
	csvBody := []byte("year,month,day,hour,temp\n2024,9,1,13,27.5\n")
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/hourly/2024/16066.csv.gz", r.URL.Path)
		_, _ = w.Write(gzipBytes(t, csvBody))
	})
	dl, rawDir, _ := newTestDownloader(t, handler, false)

	res, err := dl.Fetch(context.Background(), "16066", "16066__italy__monza", 2024)
	require.NoError(t, err)

	assert.Equal(t, "OK", res.Status)
	assert.Greater(t, res.BytesGZ, int64(0))

	got, err := os.ReadFile(res.OutCSV)
	require.NoError(t, err)
	assert.Equal(t, csvBody, got)

	// keepRaw=false removes the archive after unpacking.
	_, err = os.Stat(filepath.Join(rawDir, "16066__italy__monza", "2024.csv.gz"))
	assert.True(t, os.IsNotExist(err))
}

func TestFetchKeepsRawWhenAsked(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(gzipBytes(t, []byte("year\n2024\n")))
	})
	dl, rawDir, _ := newTestDownloader(t, handler, true)

	_, err := dl.Fetch(context.Background(), "16066", "16066__italy__monza", 2024)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(rawDir, "16066__italy__monza", "2024.csv.gz"))
	assert.NoError(t, err)
}

func TestFetchMissingRemoteFileFails(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	dl, _, outDir := newTestDownloader(t, handler, false)

	res, err := dl.Fetch(context.Background(), "00000", "00000__nowhere__x", 2024)
	require.Error(t, err)
	assert.Equal(t, "ERROR", res.Status)
	assert.NotEmpty(t, res.Error)

	// No partial output left behind.
	_, statErr := os.Stat(filepath.Join(outDir, "00000__nowhere__x", "2024.csv"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchCorruptArchiveFails(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("this is not gzip"))
	})
	dl, _, _ := newTestDownloader(t, handler, false)

	res, err := dl.Fetch(context.Background(), "16066", "16066__italy__monza", 2024)
	require.Error(t, err)
	assert.Equal(t, "ERROR", res.Status)
}

func TestPurgeRaw(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(gzipBytes(t, []byte("year\n2024\n")))
	})
	dl, rawDir, _ := newTestDownloader(t, handler, true)

	_, err := dl.Fetch(context.Background(), "16066", "16066__italy__monza", 2024)
	require.NoError(t, err)
	_, err = dl.Fetch(context.Background(), "07650", "07650__france__le-castellet", 2024)
	require.NoError(t, err)

	files, dirs := dl.PurgeRaw()
	assert.Equal(t, 2, files)
	assert.GreaterOrEqual(t, dirs, 2)

	_, err = os.Stat(rawDir)
	assert.True(t, os.IsNotExist(err))
}
