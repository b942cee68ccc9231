package models

import (
	"fmt"
	"time"
)

// OutcomeStatus tracks the CLO assessment submission/approval lifecycle.
type OutcomeStatus string

const (
	OutcomeDraft     OutcomeStatus = "DRAFT"
	OutcomeSubmitted OutcomeStatus = "SUBMITTED"
	OutcomeApproved  OutcomeStatus = "APPROVED"
	OutcomeRejected  OutcomeStatus = "REJECTED"
	// OutcomeNCI marks a submission that will never be completed
	// (e.g. instructor departed). Terminal.
	OutcomeNCI OutcomeStatus = "NCI"
)

var outcomeTransitions = map[OutcomeStatus][]OutcomeStatus{
	OutcomeDraft:     {OutcomeSubmitted, OutcomeNCI},
	OutcomeSubmitted: {OutcomeApproved, OutcomeRejected, OutcomeNCI},
	OutcomeRejected:  {OutcomeSubmitted, OutcomeNCI},
	OutcomeApproved:  {},
	OutcomeNCI:       {},
}

// ValidOutcomeStatus reports whether the status is one of the known values.
func ValidOutcomeStatus(s OutcomeStatus) bool {
	_, ok := outcomeTransitions[s]
	return ok
}

// CanTransition reports whether moving from one outcome status to another
// is allowed by the approval state machine.
func CanTransition(from, to OutcomeStatus) bool {
	for _, allowed := range outcomeTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CourseOutcome is a Course Learning Outcome template plus its per-section
// assessment figures.
type CourseOutcome struct {
	ID                   string        `db:"id" json:"id"`
	CourseNumber         string        `db:"course_number" json:"course_number" validate:"required"`
	CLONumber            string        `db:"clo_number" json:"clo_number" validate:"required"`
	InstitutionShortName string        `db:"institution_short_name" json:"institution_short_name"`
	Description          string        `db:"description" json:"description"`
	TermCode             string        `db:"term_code" json:"term_code"`
	SectionNumber        string        `db:"section_number" json:"section_number"`
	StudentsTook         int           `db:"students_took" json:"students_took"`
	StudentsPassed       int           `db:"students_passed" json:"students_passed"`
	Status               OutcomeStatus `db:"status" json:"status"`
	CreatedAt            time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time     `db:"updated_at" json:"updated_at"`

	SourceUpdatedAt time.Time `db:"-" json:"-"`
}

func (o *CourseOutcome) Kind() EntityKind { return KindCourseOutcome }

func (o *CourseOutcome) NaturalKey() string {
	return composeKey(o.CourseNumber, o.CLONumber, o.InstitutionShortName)
}

// SectionKey returns the referenced section's natural key, or an empty
// string when the outcome is not tied to a section yet.
func (o *CourseOutcome) SectionKey() string {
	if o.TermCode == "" || o.SectionNumber == "" {
		return ""
	}
	return composeKey(o.CourseNumber, o.TermCode, o.SectionNumber, o.InstitutionShortName)
}

func (o *CourseOutcome) Attributes() map[string]string {
	return map[string]string{
		"course_number":          o.CourseNumber,
		"clo_number":             o.CLONumber,
		"institution_short_name": o.InstitutionShortName,
		"description":            o.Description,
		"term_code":              o.TermCode,
		"section_number":         o.SectionNumber,
		"students_took":          formatInt(o.StudentsTook),
		"students_passed":        formatInt(o.StudentsPassed),
		"status":                 string(o.Status),
	}
}

func (o *CourseOutcome) LastModified() time.Time {
	if !o.SourceUpdatedAt.IsZero() {
		return o.SourceUpdatedAt
	}
	return o.UpdatedAt
}

// ValidateCounts enforces 0 <= students_passed <= students_took, and, when
// the enclosing section's enrollment is known, students_took <= enrollment.
func (o *CourseOutcome) ValidateCounts(sectionEnrollment int) error {
	if o.StudentsPassed < 0 || o.StudentsTook < 0 {
		return fmt.Errorf("outcome %s: negative assessment counts", o.NaturalKey())
	}
	if o.StudentsPassed > o.StudentsTook {
		return fmt.Errorf("outcome %s: students_passed (%d) > students_took (%d)",
			o.NaturalKey(), o.StudentsPassed, o.StudentsTook)
	}
	if sectionEnrollment >= 0 && o.StudentsTook > sectionEnrollment {
		return fmt.Errorf("outcome %s: students_took (%d) > section enrollment (%d)",
			o.NaturalKey(), o.StudentsTook, sectionEnrollment)
	}
	return nil
}

func outcomeFromAttributes(attrs map[string]string) (*CourseOutcome, error) {
	number, err := requireAttr(attrs, "course_number")
	if err != nil {
		return nil, err
	}
	clo, err := requireAttr(attrs, "clo_number")
	if err != nil {
		return nil, err
	}
	inst, err := requireAttr(attrs, "institution_short_name")
	if err != nil {
		return nil, err
	}
	took, err := parseInt(attrs, "students_took")
	if err != nil {
		return nil, err
	}
	passed, err := parseInt(attrs, "students_passed")
	if err != nil {
		return nil, err
	}
	status := OutcomeStatus(attrs["status"])
	if status == "" {
		status = OutcomeDraft
	}
	if !ValidOutcomeStatus(status) {
		return nil, fmt.Errorf("attribute status has unknown value %q", status)
	}
	return &CourseOutcome{
		CourseNumber:         number,
		CLONumber:            clo,
		InstitutionShortName: inst,
		Description:          attrs["description"],
		TermCode:             attrs["term_code"],
		SectionNumber:        attrs["section_number"],
		StudentsTook:         took,
		StudentsPassed:       passed,
		Status:               status,
	}, nil
}
