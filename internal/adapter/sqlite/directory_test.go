package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/power-outage-monitor/internal/domain"
)

func openTestDirectory(t *testing.T) *Directory {
	t.Helper()
	d, err := Open(context.Background(), filepath.Join(t.TempDir(), "sites.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func depot() domain.Site {
	return domain.Site{
		Name:        "Depot 12",
		Street:      "2430 E Shields Ave",
		City:        "Fresno",
		County:      "Fresno",
		State:       "CA",
		Zip:         "93726",
		Coords:      &domain.Coordinates{Longitude: -119.7826, Latitude: 36.7803},
		AccessPoint: domain.AccessPoint{Name: "Depot 12 AP", MAC: "00:18:0a:aa:bb:cc"},
	}
}

func TestDirectory_AddAndGet(t *testing.T) {
	d := openTestDirectory(t)
	ctx := context.Background()

	_, err := d.AddSite(ctx, depot())
	require.NoError(t, err)

	got, err := d.GetSite(ctx, "depot 12")
	require.NoError(t, err)
	assert.Equal(t, depot(), got)
}

func TestDirectory_GetUnknown(t *testing.T) {
	_, err := openTestDirectory(t).GetSite(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrSiteNotFound)
}

func TestDirectory_AddDuplicateIgnoresCase(t *testing.T) {
	d := openTestDirectory(t)
	ctx := context.Background()

	_, err := d.AddSite(ctx, depot())
	require.NoError(t, err)

	dup := depot()
	dup.Name = "DEPOT 12"
	dup.City = "Clovis"
	_, err = d.AddSite(ctx, dup)
	require.ErrorIs(t, err, domain.ErrSiteExists)

	got, err := d.GetSite(ctx, "Depot 12")
	require.NoError(t, err)
	assert.Equal(t, "Fresno", got.City, "existing record must be untouched")
}

func TestDirectory_AddRequiresName(t *testing.T) {
	_, err := openTestDirectory(t).AddSite(context.Background(), domain.Site{Name: "  "})
	require.Error(t, err)
}

func TestDirectory_NullCoordinates(t *testing.T) {
	d := openTestDirectory(t)
	ctx := context.Background()

	site := depot()
	site.Coords = nil
	_, err := d.AddSite(ctx, site)
	require.NoError(t, err)

	got, err := d.GetSite(ctx, site.Name)
	require.NoError(t, err)
	assert.False(t, got.HasCoordinates())
}

func TestDirectory_SetCoordinates(t *testing.T) {
	d := openTestDirectory(t)
	ctx := context.Background()

	site := depot()
	site.Coords = nil
	_, err := d.AddSite(ctx, site)
	require.NoError(t, err)

	coords := domain.Coordinates{Longitude: -119.1, Latitude: 36.2}
	got, err := d.SetCoordinates(ctx, "DEPOT 12", coords)
	require.NoError(t, err)
	require.True(t, got.HasCoordinates())
	assert.Equal(t, coords, *got.Coords)

	// Writing the same values again is harmless.
	_, err = d.SetCoordinates(ctx, "Depot 12", coords)
	require.NoError(t, err)

	_, err = d.SetCoordinates(ctx, "missing", coords)
	require.ErrorIs(t, err, domain.ErrSiteNotFound)
}

func TestDirectory_AllSitesOrdered(t *testing.T) {
	d := openTestDirectory(t)
	ctx := context.Background()

	for _, name := range []string{"Yard 3", "Annex", "Depot 12"} {
		_, err := d.AddSite(ctx, domain.Site{Name: name})
		require.NoError(t, err)
	}

	sites, err := d.AllSites(ctx)
	require.NoError(t, err)
	require.Len(t, sites, 3)
	assert.Equal(t, []string{"Annex", "Depot 12", "Yard 3"}, []string{sites[0].Name, sites[1].Name, sites[2].Name})
}

func TestOpen_UpgradesLegacySchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE sites (name TEXT PRIMARY KEY, street TEXT, city TEXT, county TEXT, state TEXT, longitude REAL, latitude REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO sites VALUES ('Depot 12', '2430 E Shields Ave', 'Fresno', 'Fresno', 'CA', -119.78, 36.78)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	d, err := Open(context.Background(), path)
	require.NoError(t, err)
	defer d.Close()

	got, err := d.GetSite(context.Background(), "depot 12")
	require.NoError(t, err)
	assert.Equal(t, "Fresno", got.City)
	assert.Empty(t, got.Zip)
	assert.True(t, got.HasCoordinates())
}

func TestDirectory_CheckReadiness(t *testing.T) {
	require.NoError(t, openTestDirectory(t).CheckReadiness(context.Background()))
}
