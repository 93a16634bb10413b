// Package hourly downloads per-station yearly bulk weather files and unpacks
// them into the folder layout the weather join reads.
package hourly

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/apexloop/circuitweather/internal/fetcher"
	"github.com/apexloop/circuitweather/internal/model"
	"github.com/apexloop/circuitweather/internal/probe"
)

const folderSlugLen = 40

// Downloader fetches <base>/hourly/<year>/<station_id>.csv.gz into a raw
// tree and gunzips each archive into the extracted tree as
// <station_id>__<country>__<locality>/<year>.csv.
type Downloader struct {
	client  *fetcher.Client
	prober  *probe.Prober
	rawDir  string
	outDir  string
	keepRaw bool
}

// NewDownloader creates a Downloader. When keepRaw is false the .csv.gz is
// removed right after a successful unpack.
func NewDownloader(client *fetcher.Client, prober *probe.Prober, rawDir, outDir string, keepRaw bool) *Downloader {
	return &Downloader{client: client, prober: prober, rawDir: rawDir, outDir: outDir, keepRaw: keepRaw}
}

// FolderAliases names one extracted folder per station. A station serving
// several circuits takes its alias from the nearest one, ties broken by
// circuit name, so the folder name is stable across runs.
func FolderAliases(mappings []model.CircuitStationMapping, slug func(string, int) string) map[string]string {
	byStation := make(map[string]model.CircuitStationMapping)
	for _, m := range mappings {
		cur, ok := byStation[m.StationID]
		if !ok || m.DistanceKM < cur.DistanceKM ||
			(m.DistanceKM == cur.DistanceKM && m.CircuitName < cur.CircuitName) {
			byStation[m.StationID] = m
		}
	}
	aliases := make(map[string]string, len(byStation))
	for id, m := range byStation {
		aliases[id] = fmt.Sprintf("%s__%s__%s",
			id, slug(m.Country, folderSlugLen), slug(m.Locality, folderSlugLen))
	}
	return aliases
}

// OutPath returns the extracted CSV path for a (folder, year).
func (d *Downloader) OutPath(folder string, year int) string {
	return filepath.Join(d.outDir, folder, fmt.Sprintf("%d.csv", year))
}

// Result describes one (station, year) download for the stage report.
type Result struct {
	StationID     string `csv:"station_id"`
	StationFolder string `csv:"station_folder"`
	Year          int    `csv:"year"`
	URL           string `csv:"url"`
	Status        string `csv:"status"`
	HTTPCode      int    `csv:"http_code"`
	BytesGZ       int64  `csv:"bytes_gz"`
	OutCSV        string `csv:"out_csv"`
	Error         string `csv:"error"`
}

// Fetch downloads and unpacks one station-year. Both the raw archive and the
// extracted CSV are written atomically.
func (d *Downloader) Fetch(ctx context.Context, stationID, folder string, year int) (Result, error) {
	url := d.prober.BulkURL(stationID, year)
	outCSV := d.OutPath(folder, year)
	rawGZ := filepath.Join(d.rawDir, folder, fmt.Sprintf("%d.csv.gz", year))

	res := Result{
		StationID:     stationID,
		StationFolder: folder,
		Year:          year,
		URL:           url,
		OutCSV:        outCSV,
	}

	n, err := d.client.DownloadToFile(ctx, url, rawGZ)
	if err != nil {
		res.Status = "ERROR"
		res.Error = err.Error()
		return res, eris.Wrapf(err, "hourly: download %s", url)
	}
	res.BytesGZ = n
	res.HTTPCode = 200

	if err := gunzipFile(rawGZ, outCSV); err != nil {
		res.Status = "ERROR"
		res.Error = err.Error()
		return res, eris.Wrapf(err, "hourly: unpack %s", rawGZ)
	}

	if !d.keepRaw {
		if err := os.Remove(rawGZ); err != nil && !os.IsNotExist(err) {
			zap.L().Warn("hourly: could not remove raw archive",
				zap.String("path", rawGZ),
				zap.Error(err),
			)
		}
	}

	res.Status = "OK"
	return res, nil
}

// gunzipFile decompresses src into dst via a temp file and rename.
func gunzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return eris.Wrap(err, "hourly: open archive")
	}
	defer in.Close() //nolint:errcheck

	gz, err := gzip.NewReader(in)
	if err != nil {
		return eris.Wrap(err, "hourly: gzip reader")
	}
	defer gz.Close() //nolint:errcheck

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return eris.Wrap(err, "hourly: create dir")
	}

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return eris.Wrap(err, "hourly: create temp file")
	}

	_, err = io.Copy(out, gz)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return eris.Wrap(err, "hourly: decompress")
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrap(err, "hourly: rename temp file")
	}
	return nil
}

// PurgeRaw deletes every *.csv.gz under the raw tree, then removes the
// directories left empty. Returns (files, dirs) removed.
func (d *Downloader) PurgeRaw() (int, int) {
	var files int
	_ = filepath.WalkDir(d.rawDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() || !strings.HasSuffix(path, ".csv.gz") {
			return nil
		}
		if rmErr := os.Remove(path); rmErr != nil {
			zap.L().Warn("hourly: could not delete raw file",
				zap.String("path", path),
				zap.Error(rmErr),
			)
			return nil
		}
		files++
		return nil
	})

	// Deepest directories first so empty parents fall in the same pass.
	var dirPaths []string
	_ = filepath.WalkDir(d.rawDir, func(path string, entry fs.DirEntry, err error) error {
		if err == nil && entry.IsDir() {
			dirPaths = append(dirPaths, path)
		}
		return nil
	})
	sort.Slice(dirPaths, func(i, j int) bool { return len(dirPaths[i]) > len(dirPaths[j]) })

	var dirs int
	for _, dir := range dirPaths {
		if err := os.Remove(dir); err == nil {
			dirs++
		}
	}
	return files, dirs
}
