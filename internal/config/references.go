package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/order-geomap/internal/domain"
)

// DefaultReferencePoints are the three fulfilment depots orders are compared
// against when no REFERENCE_POINTS_FILE is configured.
func DefaultReferencePoints(radiusMeters float64) []domain.ReferencePoint {
	return []domain.ReferencePoint{
		{Label: "London - UB8 2DB", Coordinate: domain.Coordinate{Lat: 51.536886, Lon: -0.485409}, RadiusMeters: radiusMeters},
		{Label: "Manchester - OL10 2TA", Coordinate: domain.Coordinate{Lat: 53.585153, Lon: -2.227689}, RadiusMeters: radiusMeters},
		{Label: "Birmingham - B38 8SE", Coordinate: domain.Coordinate{Lat: 52.409933, Lon: -1.940918}, RadiusMeters: radiusMeters},
	}
}

type referenceFile struct {
	ReferencePoints []referenceEntry `yaml:"reference_points"`
}

type referenceEntry struct {
	Label               string   `yaml:"label"`
	Lat                 *float64 `yaml:"lat"`
	Lon                 *float64 `yaml:"lon"`
	RadiusMeters        *float64 `yaml:"radius_meters"`
	DisplayRadiusMeters float64  `yaml:"display_radius_meters"`
}

// LoadReferencePoints returns the configured reference set: the YAML file at
// ReferencePointsFile when set, the built-in depots otherwise. Entries without
// a radius use ReferenceRadiusMeters.
func (c *Config) LoadReferencePoints() ([]domain.ReferencePoint, error) {
	if c.ReferencePointsFile == "" {
		return DefaultReferencePoints(c.ReferenceRadiusMeters), nil
	}
	data, err := os.ReadFile(c.ReferencePointsFile)
	if err != nil {
		return nil, fmt.Errorf("read reference points: %w", err)
	}
	return ParseReferencePoints(data, c.ReferenceRadiusMeters)
}

// ParseReferencePoints decodes a YAML reference point document:
//
//	reference_points:
//	  - label: London - UB8 2DB
//	    lat: 51.536886
//	    lon: -0.485409
//	    radius_meters: 80000
//	    display_radius_meters: 5000
func ParseReferencePoints(data []byte, defaultRadius float64) ([]domain.ReferencePoint, error) {
	var doc referenceFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse reference points: %w", err)
	}
	if len(doc.ReferencePoints) == 0 {
		return nil, errors.New("reference points file defines no reference_points")
	}

	refs := make([]domain.ReferencePoint, 0, len(doc.ReferencePoints))
	seen := make(map[string]bool, len(doc.ReferencePoints))
	for i, e := range doc.ReferencePoints {
		if e.Label == "" {
			return nil, fmt.Errorf("reference point %d: label is required", i)
		}
		if seen[e.Label] {
			return nil, fmt.Errorf("reference point %q: duplicate label", e.Label)
		}
		seen[e.Label] = true
		if e.Lat == nil || e.Lon == nil {
			return nil, fmt.Errorf("reference point %q: lat and lon are required", e.Label)
		}
		if *e.Lat < -90 || *e.Lat > 90 || *e.Lon < -180 || *e.Lon > 180 {
			return nil, fmt.Errorf("reference point %q: coordinate out of range", e.Label)
		}
		radius := defaultRadius
		if e.RadiusMeters != nil {
			radius = *e.RadiusMeters
		}
		if radius <= 0 {
			return nil, fmt.Errorf("reference point %q: radius_meters must be positive", e.Label)
		}
		refs = append(refs, domain.ReferencePoint{
			Label:               e.Label,
			Coordinate:          domain.Coordinate{Lat: *e.Lat, Lon: *e.Lon},
			RadiusMeters:        radius,
			DisplayRadiusMeters: e.DisplayRadiusMeters,
		})
	}
	return refs, nil
}
