// Package laps attaches session context to per-session lap files and derives
// the UTC hour bucket used downstream by the weather join.
package laps

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/apexloop/circuitweather/internal/fetcher"
	"github.com/apexloop/circuitweather/internal/model"
)

var sessionFileRE = regexp.MustCompile(`^laps_session_(\d+)\.csv$`)

// SessionFile is one per-session lap file found on disk.
type SessionFile struct {
	SessionID int
	Path      string
}

// ListSessionFiles returns the laps_session_<id>.csv files under dir in
// ascending filename order. Files that do not match the naming scheme are
// ignored.
func ListSessionFiles(dir string) ([]SessionFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "laps: list %s", dir)
	}

	var files []SessionFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := sessionFileRE.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, eris.Wrapf(err, "laps: session key in %s", e.Name())
		}
		files = append(files, SessionFile{SessionID: id, Path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(files, func(i, j int) bool {
		return filepath.Base(files[i].Path) < filepath.Base(files[j].Path)
	})
	return files, nil
}

// Scope indexes session metadata by session key.
type Scope struct {
	byID map[int]model.SessionMeta
}

// LoadScope reads the sessions scope table. Duplicate session keys keep the
// first row.
func LoadScope(path string) (*Scope, error) {
	rows, err := fetcher.ReadTable[model.SessionMeta](path)
	if err != nil {
		return nil, eris.Wrap(err, "laps: load scope")
	}
	byID := make(map[int]model.SessionMeta, len(rows))
	for _, r := range rows {
		if _, ok := byID[r.SessionID]; !ok {
			byID[r.SessionID] = r
		}
	}
	return &Scope{byID: byID}, nil
}

// Lookup returns the metadata for a session key.
func (s *Scope) Lookup(sessionID int) (model.SessionMeta, bool) {
	m, ok := s.byID[sessionID]
	return m, ok
}

// Len returns the number of distinct sessions in scope.
func (s *Scope) Len() int {
	return len(s.byID)
}

// Stats counts what the enrichment saw for one session.
type Stats struct {
	MissingMeta      int // laps written without session metadata
	MissingDateStart int // laps with no start timestamp, hence no hour bucket
}

// Enrich stamps session context onto laps and computes each lap's UTC hour
// bucket (start timestamp floored to the hour). The session key always comes
// from the filename, not the rows. Laps without a start timestamp keep a nil
// bucket and are counted, not dropped; the weather join cannot match them
// later. Output is ordered by (driver_number, lap_number).
func Enrich(sessionID int, records []model.LapRecord, scope *Scope) ([]model.ContextLap, Stats) {
	meta, hasMeta := scope.Lookup(sessionID)
	var st Stats
	if !hasMeta {
		st.MissingMeta = len(records)
		zap.L().Warn("laps: session not in scope",
			zap.Int("session_key", sessionID),
			zap.Int("n_laps", len(records)),
		)
	}

	out := make([]model.ContextLap, 0, len(records))
	for _, r := range records {
		r.SessionID = sessionID
		cl := model.ContextLap{LapRecord: r}
		if r.DateStart == nil {
			st.MissingDateStart++
		} else {
			bucket := r.DateStart.UTC().Truncate(time.Hour)
			cl.HourBucket = &bucket
		}
		if hasMeta {
			cl.Year = meta.Year
			cl.MeetingKey = meta.MeetingKey
			cl.SessionName = meta.SessionName
			cl.SessionType = meta.SessionType
			cl.CircuitID = meta.CircuitID
			cl.CircuitShortName = meta.CircuitShortName
			cl.Location = meta.Location
			cl.CountryName = meta.CountryName
		}
		out = append(out, cl)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DriverNumber != out[j].DriverNumber {
			return out[i].DriverNumber < out[j].DriverNumber
		}
		return out[i].LapNumber < out[j].LapNumber
	})
	return out, st
}

// ContextReport is one row of the enrichment stage report.
type ContextReport struct {
	SessionID        int    `csv:"session_key"`
	InputPath        string `csv:"input_path"`
	OutputPath       string `csv:"output_path"`
	Status           string `csv:"status"`
	NIn              int    `csv:"n_in"`
	NOut             int    `csv:"n_out"`
	MissingMeta      int    `csv:"n_missing_session_meta"`
	MissingDateStart int    `csv:"n_missing_lap_date_start"`
	OK               bool   `csv:"ok"`
	Error            string `csv:"error"`
}
