// Command sitectl maintains the site directory used by the power check
// service.
//
// Usage:
//
//	sitectl init
//	sitectl seed -file sites.yaml
//	sitectl add -name "Depot 12" -street "1 Main St" -city Fresno -state CA -zip 93721
//	sitectl list
//	sitectl get -name "Depot 12"
//
// Every command accepts -db, defaulting to SITE_DB_PATH or sites.db.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/power-outage-monitor/internal/adapter/sqlite"
	"github.com/couchcryptid/power-outage-monitor/internal/domain"
)

const usage = "usage: sitectl <init|seed|add|list|get> [flags]"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "sitectl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cmd, args := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dbPath := fs.String("db", sharedcfg.EnvOrDefault("SITE_DB_PATH", "sites.db"), "site database path")

	var handler func(context.Context, *sqlite.Directory, io.Writer) error
	switch cmd {
	case "init":
		handler = func(_ context.Context, _ *sqlite.Directory, w io.Writer) error {
			_, err := fmt.Fprintf(w, "initialized %s\n", *dbPath)
			return err
		}
	case "seed":
		file := fs.String("file", "", "seed file (.csv, .json, .yaml)")
		handler = func(ctx context.Context, d *sqlite.Directory, w io.Writer) error {
			return seed(ctx, d, *file, w)
		}
	case "add":
		var rec seedRecord
		fs.StringVar(&rec.Name, "name", "", "site name")
		fs.StringVar(&rec.Street, "street", "", "street address")
		fs.StringVar(&rec.City, "city", "", "city")
		fs.StringVar(&rec.County, "county", "", "county")
		fs.StringVar(&rec.State, "state", "", "state")
		fs.StringVar(&rec.Zip, "zip", "", "zip code")
		fs.Func("lon", "longitude", coordFlag(&rec.Longitude))
		fs.Func("lat", "latitude", coordFlag(&rec.Latitude))
		fs.StringVar(&rec.APName, "ap-name", "", "access point name")
		fs.StringVar(&rec.APMAC, "ap-mac", "", "access point MAC address")
		fs.StringVar(&rec.APSerial, "ap-serial", "", "access point serial")
		handler = func(ctx context.Context, d *sqlite.Directory, w io.Writer) error {
			site, err := rec.site()
			if err != nil {
				return err
			}
			added, err := d.AddSite(ctx, site)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "added %s\n", added.Name)
			return err
		}
	case "list":
		handler = list
	case "get":
		name := fs.String("name", "", "site name")
		handler = func(ctx context.Context, d *sqlite.Directory, w io.Writer) error {
			if *name == "" {
				return errors.New("-name is required")
			}
			site, err := d.GetSite(ctx, *name)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(site)
		}
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}

	d, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		return err
	}
	defer d.Close()

	return handler(ctx, d, out)
}

func coordFlag(dst **float64) func(string) error {
	return func(s string) error {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*dst = &f
		return nil
	}
}

func seed(ctx context.Context, d *sqlite.Directory, path string, w io.Writer) error {
	if path == "" {
		return errors.New("-file is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sites, err := parseSeed(path, f)
	if err != nil {
		return err
	}

	var added, skipped int
	for _, s := range sites {
		_, err := d.AddSite(ctx, s)
		switch {
		case errors.Is(err, domain.ErrSiteExists):
			skipped++
		case err != nil:
			return fmt.Errorf("add %q: %w", s.Name, err)
		default:
			added++
		}
	}
	_, err = fmt.Fprintf(w, "seeded %d sites, skipped %d existing\n", added, skipped)
	return err
}

func list(ctx context.Context, d *sqlite.Directory, w io.Writer) error {
	sites, err := d.AllSites(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCITY\tSTATE\tLONGITUDE\tLATITUDE")
	for _, s := range sites {
		lon, lat := "-", "-"
		if s.HasCoordinates() {
			lon = strconv.FormatFloat(s.Coords.Longitude, 'f', -1, 64)
			lat = strconv.FormatFloat(s.Coords.Latitude, 'f', -1, 64)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.City, s.State, lon, lat)
	}
	return tw.Flush()
}
