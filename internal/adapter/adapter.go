package adapter

import (
	"time"

	"github.com/campusmetrics/clo-api/internal/models"
)

// File is an uploaded source file held fully in memory. Imports are bounded
// to a few thousand rows, so streaming is not needed.
type File struct {
	Name    string
	Content []byte
}

// Metadata describes a registered adapter for user-facing listings.
type Metadata struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Version       string              `json:"version"`
	Bidirectional bool                `json:"bidirectional"`
	Kinds         []models.EntityKind `json:"kinds"`
}

// ParseOptions carries caller-supplied context. Adapters are
// institution-agnostic; the tenant scope is stamped on every parsed record.
type ParseOptions struct {
	InstitutionShortName string
}

// ExportOptions tunes bundle rendering.
type ExportOptions struct {
	InstitutionShortName string
	GeneratedAt          time.Time
}

// Warning is a non-fatal finding produced during parsing, such as an
// in-file duplicate collapsed last-wins.
type Warning struct {
	Kind       models.EntityKind `json:"kind,omitempty"`
	NaturalKey string            `json:"natural_key,omitempty"`
	Message    string            `json:"message"`
}

// Adapter parses one source format into the normalized entity graph.
// Implementations never touch the persistence layer.
type Adapter interface {
	Metadata() Metadata

	// ValidateCompatibility inspects structural markers without fully
	// parsing. It never returns an error for malformed-but-readable
	// files; the reason string explains any rejection.
	ValidateCompatibility(f File) (bool, string)

	// DetectDataTypes reports which entity kinds the file carries.
	DetectDataTypes(f File) ([]models.EntityKind, error)

	// Parse converts the file into typed records keyed by natural-key
	// fields, collapsing in-file duplicates last-wins.
	Parse(f File, opts ParseOptions) (*models.EntityGraph, []Warning, error)
}

// Exporter is implemented by bidirectional adapters whose FormatExport is
// the structural inverse of Parse.
type Exporter interface {
	FormatExport(g *models.EntityGraph, opts ExportOptions) ([]byte, error)
}
