package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rostermine/internal/loader"
	"github.com/sells-group/rostermine/internal/model"
	"github.com/sells-group/rostermine/internal/store"
)

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// loadRecords reads assignment records from a local CSV or XLSX file, or
// from an ftp:// URL pointing at a CSV export.
func loadRecords(ctx context.Context, input string) ([]model.AssignmentRecord, error) {
	if strings.HasPrefix(input, "ftp://") {
		fetcher := loader.NewFTPFetcher(time.Duration(cfg.FTP.TimeoutSecs) * time.Second)
		return fetcher.ReadCSVURL(ctx, input, loader.CSVOptions{})
	}

	switch strings.ToLower(filepath.Ext(input)) {
	case ".xlsx":
		return loader.ReadXLSX(input, loader.XLSXOptions{})
	case ".csv", ".txt", "":
		f, err := os.Open(input)
		if err != nil {
			return nil, eris.Wrapf(err, "open input %s", input)
		}
		defer f.Close() //nolint:errcheck
		return loader.ReadCSV(f, loader.CSVOptions{})
	default:
		return nil, eris.Errorf("unsupported input format: %s", input)
	}
}
