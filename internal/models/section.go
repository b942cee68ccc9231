package models

import (
	"fmt"
	"time"
)

// CourseSection is an enrollment unit of an offering with an optional
// instructor assignment. An unassigned section is a valid transient state.
type CourseSection struct {
	ID                   string    `db:"id" json:"id"`
	CourseNumber         string    `db:"course_number" json:"course_number" validate:"required"`
	TermCode             string    `db:"term_code" json:"term_code" validate:"required"`
	SectionNumber        string    `db:"section_number" json:"section_number" validate:"required"`
	InstitutionShortName string    `db:"institution_short_name" json:"institution_short_name"`
	InstructorEmail      string    `db:"instructor_email" json:"instructor_email"`
	Enrolled             int       `db:"enrolled" json:"enrolled"`
	Withdrawn            int       `db:"withdrawn" json:"withdrawn"`
	Passed               int       `db:"passed" json:"passed"`
	FailedIncomplete     int       `db:"failed_incomplete" json:"failed_incomplete"`
	CannotReconcile      bool      `db:"cannot_reconcile" json:"cannot_reconcile"`
	IsActive             bool      `db:"is_active" json:"is_active"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`

	SourceUpdatedAt time.Time `db:"-" json:"-"`
}

func (s *CourseSection) Kind() EntityKind { return KindCourseSection }

func (s *CourseSection) NaturalKey() string {
	return composeKey(s.CourseNumber, s.TermCode, s.SectionNumber, s.InstitutionShortName)
}

// OfferingKey references the parent offering's natural key.
func (s *CourseSection) OfferingKey() string {
	return composeKey(s.CourseNumber, s.TermCode, s.InstitutionShortName)
}

func (s *CourseSection) Attributes() map[string]string {
	return map[string]string{
		"course_number":          s.CourseNumber,
		"term_code":              s.TermCode,
		"section_number":         s.SectionNumber,
		"institution_short_name": s.InstitutionShortName,
		"instructor_email":       s.InstructorEmail,
		"enrolled":               formatInt(s.Enrolled),
		"withdrawn":              formatInt(s.Withdrawn),
		"passed":                 formatInt(s.Passed),
		"failed_incomplete":      formatInt(s.FailedIncomplete),
		"cannot_reconcile":       formatBool(s.CannotReconcile),
	}
}

func (s *CourseSection) LastModified() time.Time {
	if !s.SourceUpdatedAt.IsZero() {
		return s.SourceUpdatedAt
	}
	return s.UpdatedAt
}

// ValidateEnrollment enforces the accounting invariant
// enrolled - withdrawn = passed + failed_incomplete unless the section is
// explicitly flagged as not reconcilable.
func (s *CourseSection) ValidateEnrollment() error {
	if s.Enrolled < 0 || s.Withdrawn < 0 || s.Passed < 0 || s.FailedIncomplete < 0 {
		return fmt.Errorf("section %s: negative enrollment figures", s.NaturalKey())
	}
	if s.CannotReconcile {
		return nil
	}
	if s.Enrolled-s.Withdrawn != s.Passed+s.FailedIncomplete {
		return fmt.Errorf("section %s: enrolled-withdrawn (%d) != passed+failed_incomplete (%d)",
			s.NaturalKey(), s.Enrolled-s.Withdrawn, s.Passed+s.FailedIncomplete)
	}
	return nil
}

func sectionFromAttributes(attrs map[string]string) (*CourseSection, error) {
	number, err := requireAttr(attrs, "course_number")
	if err != nil {
		return nil, err
	}
	code, err := requireAttr(attrs, "term_code")
	if err != nil {
		return nil, err
	}
	sectionNumber, err := requireAttr(attrs, "section_number")
	if err != nil {
		return nil, err
	}
	inst, err := requireAttr(attrs, "institution_short_name")
	if err != nil {
		return nil, err
	}
	enrolled, err := parseInt(attrs, "enrolled")
	if err != nil {
		return nil, err
	}
	withdrawn, err := parseInt(attrs, "withdrawn")
	if err != nil {
		return nil, err
	}
	passed, err := parseInt(attrs, "passed")
	if err != nil {
		return nil, err
	}
	failed, err := parseInt(attrs, "failed_incomplete")
	if err != nil {
		return nil, err
	}
	cannotReconcile, err := parseBool(attrs, "cannot_reconcile")
	if err != nil {
		return nil, err
	}
	return &CourseSection{
		CourseNumber:         number,
		TermCode:             code,
		SectionNumber:        sectionNumber,
		InstitutionShortName: inst,
		InstructorEmail:      attrs["instructor_email"],
		Enrolled:             enrolled,
		Withdrawn:            withdrawn,
		Passed:               passed,
		FailedIncomplete:     failed,
		CannotReconcile:      cannotReconcile,
		IsActive:             true,
	}, nil
}
