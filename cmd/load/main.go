// load is a command-line tool to load a delimited or boundary file through a data.Loader and emit the
// result as JSON (tabular rows) or GeoJSON (boundaries) to STDOUT.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/sfomuseum/go-dashboard-data"
	_ "github.com/sfomuseum/go-dashboard-data/proj"
	"github.com/sfomuseum/go-flags/flagset"
)

func main() {
	ctx := context.Background()
	os.Exit(run(ctx, os.Args[1:], os.Stdout))
}

// run loads the file named by 'args' and writes the result to 'wr', returning the process exit code.
func run(ctx context.Context, args []string, wr io.Writer) int {

	fs := flagset.NewFlagSet("load")

	mode := fs.String("mode", "tabular", "The type of file to load. Valid options are: tabular, boundary.")
	path := fs.String("path", "", "The path of the file to load.")

	cache_uri := fs.String("cache-uri", "gocache://", fmt.Sprintf("A valid data.Cache URI. Valid schemes are: %s", strings.Join(data.CacheSchemes(), ", ")))
	notifier_uri := fs.String("notifier-uri", "log://", fmt.Sprintf("A valid data.Notifier URI. Valid schemes are: %s", strings.Join(data.NotifierSchemes(), ", ")))
	reprojector_uri := fs.String("reprojector-uri", "proj://", fmt.Sprintf("A valid data.Reprojector URI. Valid schemes are: %s", strings.Join(data.ReprojectorSchemes(), ", ")))

	delimiter := fs.String("delimiter", "", "The field delimiter for tabular files. If empty it is derived from the file extension.")
	label_attribute := fs.String("label-attribute", data.DefaultLabelAttribute, "The boundary attribute used to derive tooltips.")
	label_policy := fs.String("label-policy", "fail", "What to do with boundary records missing the label attribute. Valid options are: fail, skip, default.")
	default_label := fs.String("default-label", "", "The label to use for records missing the label attribute when -label-policy is 'default'.")

	err := fs.Parse(args)

	if err != nil {
		return 1
	}

	err = flagset.SetFlagsFromEnvVars(fs, "DASHBOARD")

	if err != nil {
		log.Printf("Failed to set flags from environment variables, %v", err)
		return 1
	}

	if *path == "" {
		fs.Usage()
		return 1
	}

	opts := &data.LoaderOptions{
		CacheURI:       *cache_uri,
		NotifierURI:    *notifier_uri,
		ReprojectorURI: *reprojector_uri,
	}

	l, err := data.NewLoader(ctx, opts)

	if err != nil {
		log.Printf("Failed to create loader, %v", err)
		return 1
	}

	defer l.Close(ctx)

	var rsp interface{}

	switch *mode {
	case "tabular":

		tabular_opts := make([]data.TabularOption, 0)

		if *delimiter != "" {

			r, _ := utf8.DecodeRuneInString(*delimiter)

			if *delimiter == `\t` {
				r = '\t'
			}

			tabular_opts = append(tabular_opts, data.WithDelimiter(r))
		}

		ds := l.LoadData(ctx, *path, tabular_opts...)

		if ds == nil {
			return 1
		}

		rsp = ds.Rows()

	case "boundary":

		policy, err := data.ParseLabelPolicy(*label_policy)

		if err != nil {
			log.Printf("Failed to parse label policy, %v", err)
			return 1
		}

		boundary_opts := []data.BoundaryOption{
			data.WithLabelAttribute(*label_attribute),
			data.WithLabelPolicy(policy),
		}

		if policy == data.LabelPolicyDefault {
			boundary_opts = append(boundary_opts, data.WithDefaultLabel(*default_label))
		}

		ds := l.LoadShapefile(ctx, *path, boundary_opts...)

		if ds == nil {
			return 1
		}

		rsp = ds

	default:
		log.Printf("Invalid mode '%s'", *mode)
		return 1
	}

	enc := json.NewEncoder(wr)
	err = enc.Encode(rsp)

	if err != nil {
		log.Printf("Failed to encode results, %v", err)
		return 1
	}

	return 0
}
