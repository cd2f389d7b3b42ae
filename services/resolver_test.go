package services

import (
	"context"
	"testing"

	"sea-travel-search/models"
)

func resolverDirectory() *Directory {
	d := NewDirectory(testStations())
	d.SetPOISource(&countingPOISource{pois: []models.POI{
		{ID: "poi-bkk", Name: "Bangkok", Country: "Thailand"},
		{ID: "poi-kpg", Name: "Koh Phangan", Country: "Thailand"},
		{ID: "poi-cnx", Name: "Chiang Mai", Country: "Thailand"},
	}}, "")
	return d
}

func TestTranslateToPOIExact(t *testing.T) {
	d := resolverDirectory()
	match, err := d.TranslateToPOI(context.Background(), "Bangkok")
	if err != nil {
		t.Fatalf("TranslateToPOI: %v", err)
	}
	if match == nil || match.ID != "poi-bkk" || match.Confidence != models.ConfidenceExact {
		t.Errorf("expected exact Bangkok match, got %+v", match)
	}
}

func TestTranslateToPOINormalized(t *testing.T) {
	d := resolverDirectory()
	// "ko phangan" only matches "Koh Phangan" after koh/ko normalization
	match, err := d.TranslateToPOI(context.Background(), "ko phangan")
	if err != nil {
		t.Fatalf("TranslateToPOI: %v", err)
	}
	if match == nil || match.ID != "poi-kpg" {
		t.Fatalf("expected Koh Phangan match, got %+v", match)
	}
	if match.Confidence != models.ConfidenceNormalized {
		t.Errorf("expected normalized confidence, got %s", match.Confidence)
	}
}

func TestTranslateToPOIPartial(t *testing.T) {
	d := resolverDirectory()
	match, err := d.TranslateToPOI(context.Background(), "chiang")
	if err != nil {
		t.Fatalf("TranslateToPOI: %v", err)
	}
	if match == nil || match.ID != "poi-cnx" || match.Confidence != models.ConfidencePartial {
		t.Errorf("expected partial Chiang Mai match, got %+v", match)
	}
}

func TestTranslateToPOIUnknown(t *testing.T) {
	d := resolverDirectory()
	match, err := d.TranslateToPOI(context.Background(), "Atlantis")
	if err != nil {
		t.Fatalf("TranslateToPOI: %v", err)
	}
	if match != nil {
		t.Errorf("unknown place should resolve to nil, got %+v", match)
	}
}
