package models

import (
	"fmt"
	"strings"
	"time"
)

// EntityKind identifies one of the closed set of importable entity types.
type EntityKind string

const (
	KindInstitution    EntityKind = "institution"
	KindProgram        EntityKind = "program"
	KindCourse         EntityKind = "course"
	KindTerm           EntityKind = "term"
	KindCourseOffering EntityKind = "course_offering"
	KindUser           EntityKind = "user"
	KindCourseSection  EntityKind = "course_section"
	KindCourseOutcome  EntityKind = "course_outcome"
)

// DependencyOrder lists entity kinds in persistence order so that forward
// references always resolve within the same batch.
var DependencyOrder = []EntityKind{
	KindInstitution,
	KindProgram,
	KindCourse,
	KindTerm,
	KindCourseOffering,
	KindUser,
	KindCourseSection,
	KindCourseOutcome,
}

// ValidKind reports whether the kind belongs to the closed set.
func ValidKind(k EntityKind) bool {
	for _, known := range DependencyOrder {
		if known == k {
			return true
		}
	}
	return false
}

// Record is the uniform view of an importable entity. Attributes returns
// every compared field (natural-key fields included) as strings; it is the
// wire format for conflict diffs, merge resolution and the CSV bundle codec.
type Record interface {
	Kind() EntityKind
	NaturalKey() string
	Attributes() map[string]string
	LastModified() time.Time
}

const keySep = "|"

func composeKey(parts ...string) string {
	return strings.Join(parts, keySep)
}

// AttributeNames returns the canonical column order for a kind. The order is
// fixed so that exports are deterministic and re-parse byte-for-byte.
func AttributeNames(kind EntityKind) []string {
	switch kind {
	case KindInstitution:
		return []string{"short_name", "name", "is_active"}
	case KindProgram:
		return []string{"name", "institution_short_name", "description", "is_active"}
	case KindCourse:
		return []string{"course_number", "institution_short_name", "title", "program_name", "credits", "is_active"}
	case KindTerm:
		return []string{"term_code", "institution_short_name", "name", "start_date", "end_date", "is_active"}
	case KindCourseOffering:
		return []string{"course_number", "term_code", "institution_short_name", "delivery_mode", "is_active"}
	case KindUser:
		return []string{"email", "full_name", "role", "institution_short_name", "is_active"}
	case KindCourseSection:
		return []string{"course_number", "term_code", "section_number", "institution_short_name", "instructor_email", "enrolled", "withdrawn", "passed", "failed_incomplete", "cannot_reconcile"}
	case KindCourseOutcome:
		return []string{"course_number", "clo_number", "institution_short_name", "description", "term_code", "section_number", "students_took", "students_passed", "status"}
	}
	return nil
}

// SetSourceTimestamp stamps the source file's modification time on a record
// for merge resolution.
func SetSourceTimestamp(r Record, t time.Time) {
	switch rec := r.(type) {
	case *Institution:
		rec.SourceUpdatedAt = t
	case *Program:
		rec.SourceUpdatedAt = t
	case *Course:
		rec.SourceUpdatedAt = t
	case *Term:
		rec.SourceUpdatedAt = t
	case *CourseOffering:
		rec.SourceUpdatedAt = t
	case *User:
		rec.SourceUpdatedAt = t
	case *CourseSection:
		rec.SourceUpdatedAt = t
	case *CourseOutcome:
		rec.SourceUpdatedAt = t
	}
}

// RecordFromAttributes rebuilds a typed record from its attribute map.
// Inverse of Record.Attributes for every kind.
func RecordFromAttributes(kind EntityKind, attrs map[string]string) (Record, error) {
	switch kind {
	case KindInstitution:
		return institutionFromAttributes(attrs)
	case KindProgram:
		return programFromAttributes(attrs)
	case KindCourse:
		return courseFromAttributes(attrs)
	case KindTerm:
		return termFromAttributes(attrs)
	case KindCourseOffering:
		return offeringFromAttributes(attrs)
	case KindUser:
		return userFromAttributes(attrs)
	case KindCourseSection:
		return sectionFromAttributes(attrs)
	case KindCourseOutcome:
		return outcomeFromAttributes(attrs)
	}
	return nil, fmt.Errorf("unknown entity kind %q", kind)
}
