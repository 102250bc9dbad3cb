package standards

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// DefaultClassificationScheme is the canonical scheme of every primary
// classification. It is stamped server-side and never accepted from clients.
const DefaultClassificationScheme = "ДК021"

// classificationFiles maps every accepted scheme to its code-table file.
var classificationFiles = map[string]string{
	"ДК021":        "classifiers_dk021_uk.json",
	"CPV_EN":       "classifiers_cpv_en.json",
	"CPV_RU":       "classifiers_cpv_ru.json",
	"ДК003":        "classifiers_dk003_uk.json",
	"ДК015":        "classifiers_dk015_uk.json",
	"ДК018":        "classifiers_dk018_uk.json",
	"КЕКВ":         "classifiers_kekv_uk.json",
	"NONE":         "classifiers_none_uk.json",
	"specialNorms": "classifiers_special_norms_uk.json",
	"UA-ROAD":      "classifiers_ua_road.json",
	"GMDN":         "classifiers_gmdn.json",
}

// standardSchemes lists the schemes whose ids are validated and enriched
// against the code table. Mapped schemes outside this set (КЕКВ) are accepted
// without table enrichment.
var standardSchemes = map[string]bool{
	"ДК003":        true,
	"ДК015":        true,
	"ДК018":        true,
	"ДК021":        true,
	"specialNorms": true,
	"UA-ROAD":      true,
	"GMDN":         true,
	"CPV_EN":       true,
	"CPV_RU":       true,
	"NONE":         true,
}

const unitCodesFile = "unit_codes_all.json"

// UnitEntry is one row of the unit code table.
type UnitEntry struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol,omitempty"`
}

// Registry is the process-wide immutable view of the reference code tables,
// loaded once at startup. Reload swaps the tables atomically so lookups keep
// the call contract while the data is refreshed.
type Registry struct {
	mu          sync.RWMutex
	dir         string
	units       map[string]UnitEntry
	classifiers map[string]map[string]string
}

// NewRegistry creates an empty registry reading from dir.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:         dir,
		units:       make(map[string]UnitEntry),
		classifiers: make(map[string]map[string]string),
	}
}

// NewStaticRegistry builds a registry from in-memory tables, bypassing the
// filesystem. Intended for tests.
func NewStaticRegistry(units map[string]UnitEntry, classifiers map[string]map[string]string) *Registry {
	if units == nil {
		units = make(map[string]UnitEntry)
	}
	if classifiers == nil {
		classifiers = make(map[string]map[string]string)
	}
	return &Registry{units: units, classifiers: classifiers}
}

// Load reads the unit table and every classifier table from the registry
// directory. A missing classifier file is logged and skipped; lookups against
// that scheme will fail as unknown ids. The unit table is mandatory.
func (r *Registry) Load() error {
	units := make(map[string]UnitEntry)
	if err := readTable(filepath.Join(r.dir, unitCodesFile), &units); err != nil {
		return fmt.Errorf("failed to load unit codes: %w", err)
	}

	classifiers := make(map[string]map[string]string, len(classificationFiles))
	for scheme, filename := range classificationFiles {
		table := make(map[string]string)
		if err := readTable(filepath.Join(r.dir, filename), &table); err != nil {
			slog.Warn("failed to load classifier table", "scheme", scheme, "file", filename, "error", err)
			continue
		}
		classifiers[scheme] = table
	}

	r.mu.Lock()
	r.units = units
	r.classifiers = classifiers
	r.mu.Unlock()

	slog.Info("reference tables loaded", "units", len(units), "schemes", len(classifiers))
	return nil
}

// Reload re-reads all tables from disk.
func (r *Registry) Reload() error {
	return r.Load()
}

// LookupUnit returns the unit table entry for a code.
func (r *Registry) LookupUnit(code string) (UnitEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.units[code]
	return entry, ok
}

// LookupClassification returns the description for an id within a scheme.
func (r *Registry) LookupClassification(scheme, id string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	table, ok := r.classifiers[scheme]
	if !ok {
		return "", false
	}
	description, ok := table[id]
	return description, ok
}

// KnownScheme reports whether a scheme is accepted at all.
func (r *Registry) KnownScheme(scheme string) bool {
	_, ok := classificationFiles[scheme]
	return ok
}

// StandardScheme reports whether a scheme routes through table enrichment.
func (r *Registry) StandardScheme(scheme string) bool {
	return standardSchemes[scheme]
}

func readTable(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read table file: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse table file %s: %w", filepath.Base(path), err)
	}
	return nil
}
