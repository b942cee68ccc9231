package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusmetrics/clo-api/internal/models"
)

// EntityStore is the kind-dispatching façade over the per-entity
// repositories. The import pipeline and the exporter speak Record; the store
// routes each record to its table.
type EntityStore struct {
	institutions *InstitutionRepository
	programs     *ProgramRepository
	courses      *CourseRepository
	terms        *TermRepository
	offerings    *OfferingRepository
	users        *UserRepository
	sections     *SectionRepository
	outcomes     *OutcomeRepository
}

// NewEntityStore constructs the store and its per-entity repositories.
func NewEntityStore(db *sqlx.DB) *EntityStore {
	return &EntityStore{
		institutions: NewInstitutionRepository(db),
		programs:     NewProgramRepository(db),
		courses:      NewCourseRepository(db),
		terms:        NewTermRepository(db),
		offerings:    NewOfferingRepository(db),
		users:        NewUserRepository(db),
		sections:     NewSectionRepository(db),
		outcomes:     NewOutcomeRepository(db),
	}
}

// upsertTimestamp picks the updated_at to persist: the record's source
// timestamp when the import carried one, otherwise now. Persisting the source
// time keeps merge resolution stable across replays of the same file.
func upsertTimestamp(rec models.Record) time.Time {
	if ts := rec.LastModified(); !ts.IsZero() {
		return ts
	}
	return time.Now().UTC()
}

// splitKey explodes a composite natural key and checks its arity.
func splitKey(kind models.EntityKind, key string, want int) ([]string, error) {
	parts := strings.Split(key, "|")
	if len(parts) != want {
		return nil, fmt.Errorf("%s natural key %q: expected %d parts, got %d", kind, key, want, len(parts))
	}
	return parts, nil
}

// GetByNaturalKey fetches the stored record for a natural key. A nil record
// with a nil error means the key is unknown.
func (s *EntityStore) GetByNaturalKey(ctx context.Context, kind models.EntityKind, key string) (models.Record, error) {
	switch kind {
	case models.KindInstitution:
		rec, err := s.institutions.FindByShortName(ctx, key)
		if err != nil || rec == nil {
			return nil, err
		}
		return rec, nil
	case models.KindProgram:
		parts, err := splitKey(kind, key, 2)
		if err != nil {
			return nil, err
		}
		rec, err := s.programs.Find(ctx, parts[0], parts[1])
		if err != nil || rec == nil {
			return nil, err
		}
		return rec, nil
	case models.KindCourse:
		parts, err := splitKey(kind, key, 2)
		if err != nil {
			return nil, err
		}
		rec, err := s.courses.Find(ctx, parts[0], parts[1])
		if err != nil || rec == nil {
			return nil, err
		}
		return rec, nil
	case models.KindTerm:
		parts, err := splitKey(kind, key, 2)
		if err != nil {
			return nil, err
		}
		rec, err := s.terms.Find(ctx, parts[0], parts[1])
		if err != nil || rec == nil {
			return nil, err
		}
		return rec, nil
	case models.KindCourseOffering:
		parts, err := splitKey(kind, key, 3)
		if err != nil {
			return nil, err
		}
		rec, err := s.offerings.Find(ctx, parts[0], parts[1], parts[2])
		if err != nil || rec == nil {
			return nil, err
		}
		return rec, nil
	case models.KindUser:
		rec, err := s.users.FindByEmail(ctx, key)
		if err != nil || rec == nil {
			return nil, err
		}
		return rec, nil
	case models.KindCourseSection:
		parts, err := splitKey(kind, key, 4)
		if err != nil {
			return nil, err
		}
		rec, err := s.sections.Find(ctx, parts[0], parts[1], parts[2], parts[3])
		if err != nil || rec == nil {
			return nil, err
		}
		return rec, nil
	case models.KindCourseOutcome:
		parts, err := splitKey(kind, key, 3)
		if err != nil {
			return nil, err
		}
		rec, err := s.outcomes.Find(ctx, parts[0], parts[1], parts[2])
		if err != nil || rec == nil {
			return nil, err
		}
		return rec, nil
	}
	return nil, fmt.Errorf("unknown entity kind %q", kind)
}

// Upsert routes a record to its table's insert-or-update.
func (s *EntityStore) Upsert(ctx context.Context, rec models.Record) error {
	switch v := rec.(type) {
	case *models.Institution:
		return s.institutions.Upsert(ctx, v)
	case *models.Program:
		return s.programs.Upsert(ctx, v)
	case *models.Course:
		return s.courses.Upsert(ctx, v)
	case *models.Term:
		return s.terms.Upsert(ctx, v)
	case *models.CourseOffering:
		return s.offerings.Upsert(ctx, v)
	case *models.User:
		return s.users.Upsert(ctx, v)
	case *models.CourseSection:
		return s.sections.Upsert(ctx, v)
	case *models.CourseOutcome:
		return s.outcomes.Upsert(ctx, v)
	}
	return fmt.Errorf("unknown record type %T", rec)
}

// LoadGraph fetches every record belonging to an institution, in dependency
// order, for export.
func (s *EntityStore) LoadGraph(ctx context.Context, institution string) (*models.EntityGraph, error) {
	graph := models.NewEntityGraph()

	inst, err := s.institutions.FindByShortName(ctx, institution)
	if err != nil {
		return nil, err
	}
	if inst != nil {
		graph.Add(inst)
	}

	programs, err := s.programs.ListByInstitution(ctx, institution)
	if err != nil {
		return nil, err
	}
	for i := range programs {
		graph.Add(&programs[i])
	}

	courses, err := s.courses.ListByInstitution(ctx, institution)
	if err != nil {
		return nil, err
	}
	for i := range courses {
		graph.Add(&courses[i])
	}

	terms, err := s.terms.ListByInstitution(ctx, institution)
	if err != nil {
		return nil, err
	}
	for i := range terms {
		graph.Add(&terms[i])
	}

	offerings, err := s.offerings.ListByInstitution(ctx, institution)
	if err != nil {
		return nil, err
	}
	for i := range offerings {
		graph.Add(&offerings[i])
	}

	users, err := s.users.ListByInstitution(ctx, institution)
	if err != nil {
		return nil, err
	}
	for i := range users {
		graph.Add(&users[i])
	}

	sections, err := s.sections.ListByInstitution(ctx, institution)
	if err != nil {
		return nil, err
	}
	for i := range sections {
		graph.Add(&sections[i])
	}

	outcomes, err := s.outcomes.ListByInstitution(ctx, institution)
	if err != nil {
		return nil, err
	}
	for i := range outcomes {
		graph.Add(&outcomes[i])
	}

	return graph, nil
}
