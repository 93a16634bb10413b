// Package probe checks whether a station's bulk yearly data file exists on
// the remote host. Unavailability is an expected outcome, not an error.
package probe

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// HTTPClient is the subset of the fetcher used for existence probes.
type HTTPClient interface {
	Head(ctx context.Context, url string) (int, error)
	GetRange(ctx context.Context, url string) (int, error)
}

// Prober probes bulk hourly file availability per (station, year).
type Prober struct {
	http    HTTPClient
	baseURL string
}

// New creates a Prober. baseURL is the bulk data root, e.g.
// "https://data.meteostat.net".
func New(client HTTPClient, baseURL string) *Prober {
	return &Prober{http: client, baseURL: baseURL}
}

// BulkURL returns the remote yearly bulk file URL for a station.
func (p *Prober) BulkURL(stationID string, year int) string {
	return fmt.Sprintf("%s/hourly/%d/%s.csv.gz", p.baseURL, year, stationID)
}

// Exists reports whether the bulk file for (station, year) is retrievable.
// It issues a HEAD request first; hosts that reject HEAD at the transport
// level are re-probed with a ranged GET for the first byte. The returned
// status is the last HTTP status observed, 0 when no response was received.
// Exists never returns an error: any failure means unavailable.
func (p *Prober) Exists(ctx context.Context, stationID string, year int) (bool, int) {
	url := p.BulkURL(stationID, year)

	status, err := p.http.Head(ctx, url)
	if err == nil {
		return status == http.StatusOK, status
	}

	status, err = p.http.GetRange(ctx, url)
	if err != nil {
		zap.L().Debug("probe: unreachable",
			zap.String("url", url),
			zap.Error(err),
		)
		return false, 0
	}
	return status == http.StatusOK || status == http.StatusPartialContent, status
}
