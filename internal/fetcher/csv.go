package fetcher

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// ReadTable reads a whole CSV file into typed rows. Column binding comes
// from the row type's csv tags; columns present in the file but absent from
// the type are ignored.
func ReadTable[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	return DecodeTable[T](f)
}

// DecodeTable reads typed rows from an open CSV stream.
func DecodeTable[T any](r io.Reader) ([]T, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, eris.Wrap(err, "csv: read header")
	}

	var rows []T
	for {
		var row T
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "csv: decode row")
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// RequireColumns verifies that the CSV file's header contains every listed
// column. A missing column is a precondition failure for the whole run, not
// a per-unit error.
func RequireColumns(path string, cols ...string) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "csv: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	header, err := csv.NewReader(f).Read()
	if err != nil {
		return eris.Wrapf(err, "csv: read header of %s", path)
	}

	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	for _, c := range cols {
		if !present[c] {
			return eris.Errorf("csv: %s missing required column %q", path, c)
		}
	}
	return nil
}

// WriteTable writes typed rows to path atomically (temp file + rename). An
// empty row set still produces a file with the header line.
func WriteTable[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "csv: create dir")
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return eris.Wrap(err, "csv: create temp file")
	}

	err = encodeTable(f, rows)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(err, "csv: write %s", path)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return eris.Wrapf(err, "csv: rename %s", path)
	}
	return nil
}

func encodeTable[T any](w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	var zero T
	if err := enc.EncodeHeader(zero); err != nil {
		return err
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
