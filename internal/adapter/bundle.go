package adapter

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/campusmetrics/clo-api/internal/models"
)

const (
	// BundleAdapterID identifies the generic normalized bundle format.
	BundleAdapterID = "clo-bundle"

	bundleVersion    = "1"
	manifestFileName = "manifest.json"
	updatedAtColumn  = "updated_at"
)

// bundleManifest makes exports self-describing so the registry re-selects
// the same adapter on re-import.
type bundleManifest struct {
	AdapterID            string `json:"adapter_id"`
	Version              string `json:"version"`
	InstitutionShortName string `json:"institution_short_name,omitempty"`
	GeneratedAt          string `json:"generated_at,omitempty"`
}

var bundleFiles = []struct {
	Kind models.EntityKind
	Name string
}{
	{models.KindInstitution, "institutions.csv"},
	{models.KindProgram, "programs.csv"},
	{models.KindCourse, "courses.csv"},
	{models.KindTerm, "terms.csv"},
	{models.KindCourseOffering, "course_offerings.csv"},
	{models.KindUser, "users.csv"},
	{models.KindCourseSection, "course_sections.csv"},
	{models.KindCourseOutcome, "course_outcomes.csv"},
}

// BundleAdapter reads and writes the normalized multi-table ZIP bundle.
// It is the reference bidirectional adapter: FormatExport is the exact
// structural inverse of Parse.
type BundleAdapter struct{}

// NewBundleAdapter returns the bundle adapter.
func NewBundleAdapter() *BundleAdapter {
	return &BundleAdapter{}
}

func (a *BundleAdapter) Metadata() Metadata {
	kinds := make([]models.EntityKind, 0, len(bundleFiles))
	for _, bf := range bundleFiles {
		kinds = append(kinds, bf.Kind)
	}
	return Metadata{
		ID:            BundleAdapterID,
		Name:          "Normalized CLO bundle (ZIP of CSV tables)",
		Version:       bundleVersion,
		Bidirectional: true,
		Kinds:         kinds,
	}
}

// ValidateCompatibility checks for a readable ZIP with a matching manifest.
func (a *BundleAdapter) ValidateCompatibility(f File) (bool, string) {
	zr, err := zip.NewReader(bytes.NewReader(f.Content), int64(len(f.Content)))
	if err != nil {
		return false, "not a ZIP archive"
	}
	manifest, err := readManifest(zr)
	if err != nil {
		return false, err.Error()
	}
	if manifest.AdapterID != BundleAdapterID {
		return false, fmt.Sprintf("manifest declares adapter %q, expected %q", manifest.AdapterID, BundleAdapterID)
	}
	if manifest.Version != bundleVersion {
		return false, fmt.Sprintf("unsupported bundle version %q", manifest.Version)
	}
	return true, ""
}

// DetectDataTypes lists the entity kinds whose tables are present.
func (a *BundleAdapter) DetectDataTypes(f File) ([]models.EntityKind, error) {
	zr, err := zip.NewReader(bytes.NewReader(f.Content), int64(len(f.Content)))
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	present := make(map[string]bool, len(zr.File))
	for _, zf := range zr.File {
		present[zf.Name] = true
	}
	var kinds []models.EntityKind
	for _, bf := range bundleFiles {
		if present[bf.Name] {
			kinds = append(kinds, bf.Kind)
		}
	}
	return kinds, nil
}

// Parse reads every entity table in the bundle into typed records.
func (a *BundleAdapter) Parse(f File, opts ParseOptions) (*models.EntityGraph, []Warning, error) {
	zr, err := zip.NewReader(bytes.NewReader(f.Content), int64(len(f.Content)))
	if err != nil {
		return nil, nil, fmt.Errorf("open bundle: %w", err)
	}

	graph := models.NewEntityGraph()
	for _, bf := range bundleFiles {
		zf := findZipFile(zr, bf.Name)
		if zf == nil {
			continue
		}
		if err := parseTable(graph, zf, bf.Kind); err != nil {
			return nil, nil, fmt.Errorf("table %s: %w", bf.Name, err)
		}
	}

	if opts.InstitutionShortName != "" {
		graph.StampInstitution(opts.InstitutionShortName)
	}

	var warnings []Warning
	for kind, keys := range graph.Dedupe() {
		for _, key := range keys {
			warnings = append(warnings, Warning{
				Kind:       kind,
				NaturalKey: key,
				Message:    "duplicate natural key in file, kept last occurrence",
			})
		}
	}
	return graph, warnings, nil
}

// FormatExport renders the entity graph back into bundle form. Rows are
// sorted by natural key so repeated exports are byte-identical.
func (a *BundleAdapter) FormatExport(g *models.EntityGraph, opts ExportOptions) ([]byte, error) {
	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)

	generatedAt := opts.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}
	manifest := bundleManifest{
		AdapterID:            BundleAdapterID,
		Version:              bundleVersion,
		InstitutionShortName: opts.InstitutionShortName,
		GeneratedAt:          generatedAt.UTC().Format(time.RFC3339),
	}
	mw, err := zw.Create(manifestFileName)
	if err != nil {
		return nil, fmt.Errorf("create manifest: %w", err)
	}
	if err := json.NewEncoder(mw).Encode(manifest); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	for _, bf := range bundleFiles {
		records := g.Records(bf.Kind)
		if len(records) == 0 {
			continue
		}
		sorted := make([]models.Record, len(records))
		copy(sorted, records)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].NaturalKey() < sorted[j].NaturalKey()
		})

		fw, err := zw.Create(bf.Name)
		if err != nil {
			return nil, fmt.Errorf("create table %s: %w", bf.Name, err)
		}
		if err := writeTable(fw, bf.Kind, sorted); err != nil {
			return nil, fmt.Errorf("table %s: %w", bf.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize bundle: %w", err)
	}
	return buf.Bytes(), nil
}

func readManifest(zr *zip.Reader) (*bundleManifest, error) {
	zf := findZipFile(zr, manifestFileName)
	if zf == nil {
		return nil, fmt.Errorf("missing %s", manifestFileName)
	}
	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer rc.Close() //nolint:errcheck
	var manifest bundleManifest
	if err := json.NewDecoder(rc).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("malformed manifest: %w", err)
	}
	return &manifest, nil
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, zf := range zr.File {
		if zf.Name == name {
			return zf
		}
	}
	return nil
}

func parseTable(graph *models.EntityGraph, zf *zip.File, kind models.EntityKind) error {
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer rc.Close() //nolint:errcheck

	reader := csv.NewReader(rc)
	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("row %d: %w", line, err)
		}
		line++

		attrs := make(map[string]string, len(header))
		var sourceUpdated time.Time
		for i, col := range header {
			if i >= len(row) {
				break
			}
			if col == updatedAtColumn {
				if ts, parseErr := time.Parse(time.RFC3339, row[i]); parseErr == nil {
					sourceUpdated = ts
				}
				continue
			}
			attrs[col] = row[i]
		}

		rec, err := models.RecordFromAttributes(kind, attrs)
		if err != nil {
			return fmt.Errorf("row %d: %w", line, err)
		}
		if !sourceUpdated.IsZero() {
			models.SetSourceTimestamp(rec, sourceUpdated)
		}
		graph.Add(rec)
	}
}

func writeTable(w io.Writer, kind models.EntityKind, records []models.Record) error {
	writer := csv.NewWriter(w)
	header := append(append([]string{}, models.AttributeNames(kind)...), updatedAtColumn)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		attrs := rec.Attributes()
		row := make([]string, 0, len(header))
		for _, col := range header[:len(header)-1] {
			row = append(row, attrs[col])
		}
		modified := ""
		if !rec.LastModified().IsZero() {
			modified = rec.LastModified().UTC().Format(time.RFC3339)
		}
		row = append(row, modified)
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
