package services

import (
	"log"
	"regexp"

	"sea-travel-search/config"
	"sea-travel-search/models"
)

// Provider identifiers accepted by the search endpoint
const (
	CompanyTwelveGo = "12go"
	CompanyP10      = "p10"
)

// dateRe validates YYYY-MM-DD travel dates
var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidDate reports whether a travel date is well-formed
func ValidDate(date string) bool {
	return dateRe.MatchString(date)
}

var (
	cfg              *config.Config
	defaultDirectory *Directory
	defaultGeocoder  *Geocoder
	defaultContent   *ContentFetcher
	orchestrators    map[string]*Orchestrator
)

// Init wires every service from configuration. Called once at startup.
func Init(c *config.Config) error {
	cfg = c

	directory, err := LoadDirectory(c.StationsFile)
	if err != nil {
		return err
	}
	defaultDirectory = directory

	twelveGo := NewTwelveGoClient(c.TwelveGoBaseURL, c.TwelveGoAPIKey)
	directory.SetPOISource(twelveGo, c.POICacheFile)

	defaultGeocoder = NewGeocoder(c.MapboxURL, c.MapboxAPIKey)
	defaultContent = NewContentFetcher(c.ContentBaseURL)

	orchestrators = map[string]*Orchestrator{
		CompanyTwelveGo: NewOrchestrator(directory, twelveGo, CompanyTwelveGo),
	}

	if c.P10CertFile != "" && c.P10KeyFile != "" {
		p10, err := NewP10Client(c.P10BaseURL, c.P10BookingURL, c.P10CertFile, c.P10KeyFile)
		if err != nil {
			log.Printf("WARNING: p10 provider disabled: %v", err)
		} else {
			orchestrators[CompanyP10] = NewOrchestrator(directory, p10, CompanyP10)
		}
	}

	return nil
}

// DirectoryService returns the station/POI directory
func DirectoryService() *Directory {
	return defaultDirectory
}

// GeocoderService returns the place autocomplete geocoder
func GeocoderService() *Geocoder {
	return defaultGeocoder
}

// OrchestratorFor returns the fan-out orchestrator for one provider.
// Empty company defaults to the modern provider.
func OrchestratorFor(company string) (*Orchestrator, error) {
	if company == "" {
		company = CompanyTwelveGo
	}
	o, ok := orchestrators[company]
	if !ok {
		return nil, &models.ConfigError{Missing: company + " provider"}
	}
	return o, nil
}
