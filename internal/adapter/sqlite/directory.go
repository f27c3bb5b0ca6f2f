package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/couchcryptid/power-outage-monitor/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS sites (
    name      TEXT PRIMARY KEY COLLATE NOCASE,
    street    TEXT NOT NULL DEFAULT '',
    city      TEXT NOT NULL DEFAULT '',
    county    TEXT NOT NULL DEFAULT '',
    state     TEXT NOT NULL DEFAULT '',
    longitude REAL,
    latitude  REAL
);`

// Columns added after the original table layout. Older databases are
// upgraded in place on open.
var addedColumns = []struct{ name, ddl string }{
	{"zip", "ALTER TABLE sites ADD COLUMN zip TEXT NOT NULL DEFAULT ''"},
	{"ap_name", "ALTER TABLE sites ADD COLUMN ap_name TEXT NOT NULL DEFAULT ''"},
	{"ap_mac", "ALTER TABLE sites ADD COLUMN ap_mac TEXT NOT NULL DEFAULT ''"},
	{"ap_serial", "ALTER TABLE sites ADD COLUMN ap_serial TEXT NOT NULL DEFAULT ''"},
}

// Text columns may be NULL in databases created before the NOT NULL defaults.
const selectColumns = `name, COALESCE(street, ''), COALESCE(city, ''), COALESCE(county, ''), COALESCE(state, ''),
    zip, longitude, latitude, ap_name, ap_mac, ap_serial`

// Directory implements domain.SiteDirectory on a SQLite file.
type Directory struct {
	db *sql.DB
}

// Open opens or creates the site database at path and brings its schema up
// to date.
func Open(ctx context.Context, path string) (*Directory, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create site db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open site db: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	d := &Directory{db: db}
	if err := d.migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // already failing
		return nil, err
	}
	return d, nil
}

func (d *Directory) migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create sites table: %w", err)
	}

	existing, err := d.columns(ctx)
	if err != nil {
		return err
	}
	for _, col := range addedColumns {
		if existing[col.name] {
			continue
		}
		if _, err := d.db.ExecContext(ctx, col.ddl); err != nil {
			return fmt.Errorf("add column %s: %w", col.name, err)
		}
	}
	return nil
}

func (d *Directory) columns(ctx context.Context) (map[string]bool, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT name FROM pragma_table_info('sites')`)
	if err != nil {
		return nil, fmt.Errorf("read sites schema: %w", err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("read sites schema: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// Close releases the database handle.
func (d *Directory) Close() error {
	return d.db.Close()
}

// CheckReadiness pings the database.
func (d *Directory) CheckReadiness(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("site db: %w", err)
	}
	return nil
}

// GetSite looks a site up by name, ignoring case.
func (d *Directory) GetSite(ctx context.Context, name string) (domain.Site, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM sites WHERE name = ? COLLATE NOCASE`, strings.TrimSpace(name))
	site, err := scanSite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Site{}, fmt.Errorf("%w: %s", domain.ErrSiteNotFound, name)
	}
	if err != nil {
		return domain.Site{}, fmt.Errorf("get site %q: %w", name, err)
	}
	return site, nil
}

// AddSite inserts a site. A name already present in any case returns
// domain.ErrSiteExists and leaves the stored record untouched.
func (d *Directory) AddSite(ctx context.Context, site domain.Site) (domain.Site, error) {
	site.Name = strings.TrimSpace(site.Name)
	if site.Name == "" {
		return domain.Site{}, errors.New("add site: name is required")
	}

	var lon, lat sql.NullFloat64
	if site.Coords != nil {
		lon = sql.NullFloat64{Float64: site.Coords.Longitude, Valid: true}
		lat = sql.NullFloat64{Float64: site.Coords.Latitude, Valid: true}
	}

	res, err := d.db.ExecContext(ctx, `
INSERT INTO sites (name, street, city, county, state, zip, longitude, latitude, ap_name, ap_mac, ap_serial)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(name) DO NOTHING`,
		site.Name, site.Street, site.City, site.County, site.State, site.Zip, lon, lat,
		site.AccessPoint.Name, site.AccessPoint.MAC, site.AccessPoint.Serial,
	)
	if err != nil {
		return domain.Site{}, fmt.Errorf("add site %q: %w", site.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Site{}, fmt.Errorf("add site %q: %w", site.Name, err)
	}
	if n == 0 {
		return domain.Site{}, fmt.Errorf("%w: %s", domain.ErrSiteExists, site.Name)
	}
	return site, nil
}

// AllSites returns every site ordered by name.
func (d *Directory) AllSites(ctx context.Context) ([]domain.Site, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM sites ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()

	var sites []domain.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("list sites: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// SetCoordinates stores a site's longitude and latitude.
func (d *Directory) SetCoordinates(ctx context.Context, name string, coords domain.Coordinates) (domain.Site, error) {
	res, err := d.db.ExecContext(ctx,
		`UPDATE sites SET longitude = ?, latitude = ? WHERE name = ? COLLATE NOCASE`,
		coords.Longitude, coords.Latitude, strings.TrimSpace(name),
	)
	if err != nil {
		return domain.Site{}, fmt.Errorf("set coordinates for %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.Site{}, fmt.Errorf("%w: %s", domain.ErrSiteNotFound, name)
	}
	return d.GetSite(ctx, name)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSite(s scanner) (domain.Site, error) {
	var (
		site     domain.Site
		lon, lat sql.NullFloat64
	)
	err := s.Scan(
		&site.Name, &site.Street, &site.City, &site.County, &site.State, &site.Zip,
		&lon, &lat,
		&site.AccessPoint.Name, &site.AccessPoint.MAC, &site.AccessPoint.Serial,
	)
	if err != nil {
		return domain.Site{}, err
	}
	if lon.Valid && lat.Valid {
		site.Coords = &domain.Coordinates{Longitude: lon.Float64, Latitude: lat.Float64}
	}
	return site, nil
}
