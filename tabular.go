package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/pkg/errors"
)

// TabularDataset is an in-memory table loaded from a delimited text file. Column names and row order
// are those of the source file.
type TabularDataset struct {
	// The path the dataset was read from, as supplied by the caller.
	Path string
	// The parsed table. Column types are those detected by gota (int, float, bool or string).
	Frame dataframe.DataFrame
}

// Columns returns the column names in source order.
func (d *TabularDataset) Columns() []string {
	return d.Frame.Names()
}

// Len returns the number of data rows (the header is not counted).
func (d *TabularDataset) Len() int {
	return d.Frame.Nrow()
}

// Rows returns each row as a map of column name to value.
func (d *TabularDataset) Rows() []map[string]interface{} {
	return d.Frame.Maps()
}

// Records returns the table as strings, header first.
func (d *TabularDataset) Records() [][]string {
	return d.Frame.Records()
}

type tabularOptions struct {
	delimiter rune
}

// TabularOption configures ReadTabular and Loader.LoadData.
type TabularOption func(*tabularOptions)

// WithDelimiter sets the field delimiter. By default it is derived from the file extension.
func WithDelimiter(r rune) TabularOption {
	return func(opts *tabularOptions) {
		opts.delimiter = r
	}
}

func newTabularOptions(path string, options ...TabularOption) *tabularOptions {

	opts := &tabularOptions{
		delimiter: delimiterForPath(path),
	}

	for _, o := range options {
		o(opts)
	}

	return opts
}

func delimiterForPath(path string) rune {

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab":
		return '\t'
	default:
		return ','
	}
}

// cacheKey derives the cache key for a tabular load from its arguments.
func (opts *tabularOptions) cacheKey(path string) string {
	return fmt.Sprintf("tabular#%s#%q", path, opts.delimiter)
}

// ReadTabular reads the delimited file at 'path' into a TabularDataset. If 'path' does not reference an existing
// file a *NotFoundError is returned and the file is never opened.
func ReadTabular(ctx context.Context, src Source, path string, options ...TabularOption) (*TabularDataset, error) {

	opts := newTabularOptions(path, options...)
	return readTabular(ctx, src, path, opts)
}

func readTabular(ctx context.Context, src Source, path string, opts *tabularOptions) (*TabularDataset, error) {

	t1 := time.Now()

	defer func() {
		slog.Debug("Time to read tabular data", "path", path, "time", time.Since(t1))
	}()

	err := ensureFile(src, path)

	if err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		// pass
	}

	fh, err := src.Open(path)

	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open %s", path)
	}

	defer fh.Close()

	df, err := parseTabular(fh, opts.delimiter)

	if err != nil {
		return nil, errors.Wrapf(err, "Failed to parse %s", path)
	}

	ds := &TabularDataset{
		Path:  path,
		Frame: df,
	}

	return ds, nil
}

// parseTabular reads delimited records from 'r' into a DataFrame. The first record is the header.
// Records with fewer fields than the header are padded with missing values. Records with more
// fields are an error.
func parseTabular(r io.Reader, delimiter rune) (dataframe.DataFrame, error) {

	rdr := csv.NewReader(r)
	rdr.Comma = delimiter
	rdr.FieldsPerRecord = -1

	header, err := rdr.Read()

	if err == io.EOF {
		return dataframe.DataFrame{}, fmt.Errorf("No columns to parse")
	}

	if err != nil {
		return dataframe.DataFrame{}, err
	}

	header = uniqueColumnNames(header)
	count := len(header)

	records := [][]string{
		header,
	}

	for {

		rec, err := rdr.Read()

		if err == io.EOF {
			break
		}

		if err != nil {
			return dataframe.DataFrame{}, err
		}

		if len(rec) > count {
			line, _ := rdr.FieldPos(0)
			return dataframe.DataFrame{}, fmt.Errorf("Record on line %d has %d fields, expected %d", line, len(rec), count)
		}

		for len(rec) < count {
			rec = append(rec, "")
		}

		records = append(records, rec)
	}

	// gota refuses to load a header without rows
	if len(records) == 1 {

		columns := make([]series.Series, count)

		for idx, name := range header {
			columns[idx] = series.New([]string{}, series.String, name)
		}

		df := dataframe.New(columns...)
		return df, df.Err
	}

	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
		dataframe.NaNValues([]string{"", "NA", "NaN", "<nil>"}),
	)

	return df, df.Err
}

// uniqueColumnNames returns 'names' with repeated names suffixed ".1", ".2" and so on, in the order
// they appear. The first occurrence keeps its name.
func uniqueColumnNames(names []string) []string {

	out := make([]string, len(names))
	seen := make(map[string]bool)

	for _, n := range names {
		seen[n] = true
	}

	counts := make(map[string]int)

	for idx, n := range names {

		if counts[n] == 0 {
			out[idx] = n
			counts[n] = 1
			continue
		}

		candidate := n

		for {
			candidate = fmt.Sprintf("%s.%d", n, counts[n])
			counts[n] += 1

			if !seen[candidate] {
				break
			}
		}

		seen[candidate] = true
		out[idx] = candidate
	}

	return out
}
