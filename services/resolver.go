package services

import (
	"context"
	"strings"

	"sea-travel-search/models"
)

// TranslateToPOI maps a free-text place name to a provider POI id.
// Resolution order: exact lookup, normalized lookup, first fuzzy substring
// hit. Returns nil when nothing matches — an unknown place, not an error.
func (d *Directory) TranslateToPOI(ctx context.Context, placeName string) (*models.POIMatch, error) {
	index, err := d.poiIndex(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(placeName)
	if name == "" {
		return nil, nil
	}

	if p, ok := index.byName[strings.ToLower(name)]; ok {
		return &models.POIMatch{ID: p.ID, Name: p.Name, Confidence: models.ConfidenceExact}, nil
	}

	normalized := NormalizeName(name)
	if p, ok := index.byNormName[normalized]; ok {
		return &models.POIMatch{ID: p.ID, Name: p.Name, Confidence: models.ConfidenceNormalized}, nil
	}

	for _, p := range index.pois {
		if strings.Contains(NormalizeName(p.Name), normalized) {
			return &models.POIMatch{ID: p.ID, Name: p.Name, Confidence: models.ConfidencePartial}, nil
		}
	}

	return nil, nil
}
