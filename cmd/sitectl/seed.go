package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/power-outage-monitor/internal/domain"
)

// seedRecord is one site in a seed file. CSV files use the same names as
// header columns.
type seedRecord struct {
	Name      string   `json:"siteName" yaml:"siteName"`
	Street    string   `json:"street" yaml:"street"`
	City      string   `json:"city" yaml:"city"`
	County    string   `json:"county" yaml:"county"`
	State     string   `json:"state" yaml:"state"`
	Zip       string   `json:"zip" yaml:"zip"`
	Longitude *float64 `json:"longitude" yaml:"longitude"`
	Latitude  *float64 `json:"latitude" yaml:"latitude"`
	APName    string   `json:"apName" yaml:"apName"`
	APMAC     string   `json:"apMac" yaml:"apMac"`
	APSerial  string   `json:"apSerial" yaml:"apSerial"`
}

func (r seedRecord) site() (domain.Site, error) {
	s := domain.Site{
		Name:   strings.TrimSpace(r.Name),
		Street: r.Street,
		City:   r.City,
		County: r.County,
		State:  r.State,
		Zip:    r.Zip,
		AccessPoint: domain.AccessPoint{
			Name:   r.APName,
			MAC:    r.APMAC,
			Serial: r.APSerial,
		},
	}
	if s.Name == "" {
		return domain.Site{}, errors.New("siteName is required")
	}
	switch {
	case r.Longitude != nil && r.Latitude != nil:
		s.Coords = &domain.Coordinates{Longitude: *r.Longitude, Latitude: *r.Latitude}
	case r.Longitude != nil || r.Latitude != nil:
		return domain.Site{}, fmt.Errorf("site %q: longitude and latitude must be set together", s.Name)
	}
	return s, nil
}

// parseSeed decodes a seed file, choosing the format from its extension.
func parseSeed(name string, r io.Reader) ([]domain.Site, error) {
	var (
		records []seedRecord
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".json":
		err = json.NewDecoder(r).Decode(&records)
	case ".yaml", ".yml":
		err = yaml.NewDecoder(r).Decode(&records)
	case ".csv":
		records, err = readCSV(r)
	default:
		return nil, fmt.Errorf("unsupported seed format %q: use .csv, .json, .yaml or .yml", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	sites := make([]domain.Site, 0, len(records))
	for i, rec := range records {
		s, err := rec.site()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		sites = append(sites, s)
	}
	return sites, nil
}

func readCSV(r io.Reader) ([]seedRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["sitename"]; !ok {
		return nil, errors.New("missing siteName column")
	}

	var records []seedRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		get := func(key string) string {
			if i, ok := col[key]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		rec := seedRecord{
			Name:     get("sitename"),
			Street:   get("street"),
			City:     get("city"),
			County:   get("county"),
			State:    get("state"),
			Zip:      get("zip"),
			APName:   get("apname"),
			APMAC:    get("apmac"),
			APSerial: get("apserial"),
		}
		if rec.Longitude, err = parseCoord(get("longitude")); err != nil {
			return nil, fmt.Errorf("line %d: longitude: %w", line, err)
		}
		if rec.Latitude, err = parseCoord(get("latitude")); err != nil {
			return nil, fmt.Errorf("line %d: latitude: %w", line, err)
		}
		records = append(records, rec)
	}
}

func parseCoord(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
