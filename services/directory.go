package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"sea-travel-search/models"
)

const (
	poiCacheKey      = "pois"
	poiCacheDuration = 24 * time.Hour
	poiCleanupEvery  = 48 * time.Hour
)

// Search modes for the directory
const (
	SearchModeStation = "station"
	SearchModeCity    = "city"
)

// POISource lists all POIs from the itinerary provider
type POISource interface {
	ListPOIs(ctx context.Context) ([]models.POI, error)
}

// Directory is the static station lookup plus the provider POI cache.
// Stations are loaded once at startup and read-only afterwards; the POI
// list is fetched lazily, cached in memory and mirrored to disk.
type Directory struct {
	stations []models.Station
	byID     map[string]models.Station
	byCity   map[string][]models.Station

	poiSource POISource
	poiCache  *cache.Cache
	cacheFile string

	mu      sync.Mutex
	pending *poiLoad
}

// poiLoad is a shared in-flight POI fetch. Concurrent cold-start callers
// all wait on the same load instead of issuing duplicate upstream fetches.
type poiLoad struct {
	done  chan struct{}
	index *poiIndex
	err   error
}

// poiIndex is the POI list plus its name lookup maps
type poiIndex struct {
	pois       []models.POI
	byName     map[string]models.POI
	byNormName map[string]models.POI
}

// diskPOICache is the on-disk mirror of a fetched POI list
type diskPOICache struct {
	FetchedAt time.Time    `json:"fetched_at"`
	POIs      []models.POI `json:"pois"`
}

// NewDirectory builds a directory over a static station set
func NewDirectory(stations []models.Station) *Directory {
	d := &Directory{
		stations: stations,
		byID:     make(map[string]models.Station, len(stations)),
		byCity:   make(map[string][]models.Station),
		poiCache: cache.New(poiCacheDuration, poiCleanupEvery),
	}
	for _, s := range stations {
		d.byID[s.ID] = s
		key := NormalizeName(s.City)
		d.byCity[key] = append(d.byCity[key], s)
	}
	return d
}

// LoadDirectory reads the bundled station dataset and builds the indexes
func LoadDirectory(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading station dataset: %w", err)
	}
	var stations []models.Station
	if err := json.Unmarshal(data, &stations); err != nil {
		return nil, fmt.Errorf("parsing station dataset: %w", err)
	}
	log.Printf("Loaded %d stations from %s", len(stations), path)
	return NewDirectory(stations), nil
}

// SetPOISource attaches the provider used for lazy POI loads
func (d *Directory) SetPOISource(source POISource, cacheFile string) {
	d.poiSource = source
	d.cacheFile = cacheFile
}

// StationByID resolves a station by exact id
func (d *Directory) StationByID(id string) (models.Station, bool) {
	s, ok := d.byID[id]
	return s, ok
}

// StationsByCity returns every station in a city (normalized name match)
func (d *Directory) StationsByCity(city string) []models.Station {
	return d.byCity[NormalizeName(city)]
}

// Cities groups all stations into city aggregates, sorted by name
func (d *Directory) Cities() []models.City {
	grouped := make(map[string]*models.City)
	var order []string
	for _, s := range d.stations {
		key := NormalizeName(s.City)
		c, ok := grouped[key]
		if !ok {
			c = &models.City{Name: s.City, Province: s.Province, Country: s.Country}
			grouped[key] = c
			order = append(order, key)
		}
		c.Stations = append(c.Stations, s)
		c.StationCount++
	}
	sort.Strings(order)
	cities := make([]models.City, 0, len(order))
	for _, key := range order {
		cities = append(cities, *grouped[key])
	}
	return cities
}

// CityByName returns the city aggregate for one city name
func (d *Directory) CityByName(name string) (models.City, bool) {
	stations := d.StationsByCity(name)
	if len(stations) == 0 {
		return models.City{}, false
	}
	city := models.City{
		Name:         stations[0].City,
		Province:     stations[0].Province,
		Country:      stations[0].Country,
		StationCount: len(stations),
		Stations:     stations,
	}
	return city, true
}

// SearchStations runs a fuzzy station search, strongest matches first.
// Queries shorter than 2 characters return an empty result set.
func (d *Directory) SearchStations(query string, limit int) []models.StationMatch {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return []models.StationMatch{}
	}
	normalized := NormalizeName(query)

	var matches []models.StationMatch
	for _, s := range d.stations {
		score := scoreField(s.Name, normalized) +
			scoreField(s.City, normalized) +
			scoreField(s.Province, normalized)
		if score > 0 {
			matches = append(matches, models.StationMatch{Station: s, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// SearchCities runs a fuzzy city search, strongest matches first
func (d *Directory) SearchCities(query string, limit int) []models.CityMatch {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return []models.CityMatch{}
	}
	normalized := NormalizeName(query)

	var matches []models.CityMatch
	for _, c := range d.Cities() {
		score := scoreField(c.Name, normalized) + scoreField(c.Province, normalized)
		if score > 0 {
			matches = append(matches, models.CityMatch{City: c, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// scoreField scores one station field against a normalized query.
// Exact 100, prefix 50, substring 25, plus an independent word-boundary
// prefix bonus of 10. Only positive totals count as matches.
func scoreField(field, normalizedQuery string) int {
	f := NormalizeName(field)
	if f == "" || normalizedQuery == "" {
		return 0
	}

	score := 0
	switch {
	case f == normalizedQuery:
		score += 100
	case strings.HasPrefix(f, normalizedQuery):
		score += 50
	case strings.Contains(f, normalizedQuery):
		score += 25
	}

	for _, word := range strings.Fields(f) {
		if word != f && strings.HasPrefix(word, normalizedQuery) {
			score += 10
			break
		}
	}

	return score
}

// NormalizeName prepares a place name for fuzzy matching: lowercase, strip
// hyphens, unify the koh/ko island prefix, drop trailing island/beach
// suffixes and collapse whitespace.
func NormalizeName(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.Join(strings.Fields(s), " ")
	if strings.HasPrefix(s, "koh ") {
		s = "ko " + strings.TrimPrefix(s, "koh ")
	}
	s = strings.TrimSuffix(s, " island")
	s = strings.TrimSuffix(s, " beach")
	return strings.TrimSpace(s)
}

// POIs returns the provider POI list, loading it at most once concurrently
func (d *Directory) POIs(ctx context.Context) ([]models.POI, error) {
	index, err := d.poiIndex(ctx)
	if err != nil {
		return nil, err
	}
	return index.pois, nil
}

// poiIndex returns the cached POI index, coalescing concurrent cold loads
func (d *Directory) poiIndex(ctx context.Context) (*poiIndex, error) {
	if v, ok := d.poiCache.Get(poiCacheKey); ok {
		return v.(*poiIndex), nil
	}

	d.mu.Lock()
	load := d.pending
	if load == nil {
		load = &poiLoad{done: make(chan struct{})}
		d.pending = load
		go d.runPOILoad(load)
	}
	d.mu.Unlock()

	select {
	case <-load.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return load.index, load.err
}

func (d *Directory) runPOILoad(load *poiLoad) {
	defer func() {
		d.mu.Lock()
		d.pending = nil
		d.mu.Unlock()
		close(load.done)
	}()

	pois, err := d.loadPOIs()
	if err != nil {
		load.err = err
		return
	}
	index := buildPOIIndex(pois)
	d.poiCache.Set(poiCacheKey, index, cache.DefaultExpiration)
	load.index = index
}

// loadPOIs prefers the disk mirror when fresh, otherwise fetches upstream
func (d *Directory) loadPOIs() ([]models.POI, error) {
	if pois, ok := d.readDiskCache(); ok {
		log.Printf("Loaded %d POIs from disk cache", len(pois))
		return pois, nil
	}

	if d.poiSource == nil {
		return nil, &models.ConfigError{Missing: "POI source"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pois, err := d.poiSource.ListPOIs(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("Fetched %d POIs from provider", len(pois))
	d.writeDiskCache(pois)
	return pois, nil
}

func (d *Directory) readDiskCache() ([]models.POI, bool) {
	if d.cacheFile == "" {
		return nil, false
	}
	data, err := os.ReadFile(d.cacheFile)
	if err != nil {
		return nil, false
	}
	var cached diskPOICache
	if err := json.Unmarshal(data, &cached); err != nil {
		log.Printf("Ignoring corrupt POI cache file: %v", err)
		return nil, false
	}
	if time.Since(cached.FetchedAt) > poiCacheDuration {
		return nil, false
	}
	return cached.POIs, true
}

func (d *Directory) writeDiskCache(pois []models.POI) {
	if d.cacheFile == "" {
		return
	}
	data, err := json.Marshal(diskPOICache{FetchedAt: time.Now(), POIs: pois})
	if err != nil {
		return
	}
	if err := os.WriteFile(d.cacheFile, data, 0o644); err != nil {
		log.Printf("Failed to write POI cache file: %v", err)
	}
}

func buildPOIIndex(pois []models.POI) *poiIndex {
	index := &poiIndex{
		pois:       pois,
		byName:     make(map[string]models.POI, len(pois)),
		byNormName: make(map[string]models.POI, len(pois)),
	}
	for _, p := range pois {
		key := strings.ToLower(p.Name)
		if _, ok := index.byName[key]; !ok {
			index.byName[key] = p
		}
		norm := NormalizeName(p.Name)
		if _, ok := index.byNormName[norm]; !ok {
			index.byNormName[norm] = p
		}
	}
	return index
}
