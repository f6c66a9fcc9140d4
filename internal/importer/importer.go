// Package importer loads historical offer exports (CSV, XLSX or JSON) so
// a research run can treat them as already known.
package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/casino-research/internal/model"
	"github.com/sells-group/casino-research/internal/recon"
)

// HistoricalSource tags imported offers that carry no source of their own.
const HistoricalSource = "Historical Import"

// LoadOffers reads the offer export at path, choosing the format by file
// extension, and normalizes every row.
func LoadOffers(ctx context.Context, path string) ([]model.PromotionalOffer, error) {
	var (
		records []model.RawRecord
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".tsv":
		records, err = readCSVFile(ctx, path, ext == ".tsv")
	case ".xlsx":
		records, err = ReadXLSX(path, XLSXOptions{})
	case ".json":
		records, err = readJSONFile(ctx, path)
	default:
		return nil, eris.Errorf("importer: unsupported file type %q", ext)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "importer: load %s", path)
	}

	offers := recon.NormalizeOffers(records, HistoricalSource)
	zap.L().Info("historical offers loaded", zap.String("path", path), zap.Int("offers", len(offers)))
	return offers, nil
}

func readCSVFile(ctx context.Context, path string, tabs bool) ([]model.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open file")
	}
	defer f.Close() //nolint:errcheck

	opts := CSVOptions{TrimSpace: true, LazyQuotes: true}
	if tabs {
		opts.Delimiter = '\t'
	}
	return collect(StreamCSV(ctx, f, opts))
}

func readJSONFile(ctx context.Context, path string) ([]model.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "json: open file")
	}
	defer f.Close() //nolint:errcheck

	return collect(DecodeJSONArray[model.RawRecord](ctx, f))
}

// collect drains a record stream, returning the first error.
func collect[T any](outCh <-chan T, errCh <-chan error) ([]T, error) {
	var out []T
	for v := range outCh {
		out = append(out, v)
	}
	for err := range errCh {
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// toRecord pairs header names with cell values. Blank headers and blank
// cells are skipped so normalization falls back to its defaults.
func toRecord(header, row []string) model.RawRecord {
	rec := make(model.RawRecord, len(header))
	for i, h := range header {
		if h == "" || i >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[i]); v != "" {
			rec[h] = v
		}
	}
	return rec
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return out
}
