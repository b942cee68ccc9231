package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNaturalKeyComposition(t *testing.T) {
	section := &CourseSection{
		CourseNumber:         "CS101",
		TermCode:             "2026SP",
		SectionNumber:        "001",
		InstitutionShortName: "nvcc",
	}
	require.Equal(t, "CS101|2026SP|001|nvcc", section.NaturalKey())
	require.Equal(t, "CS101|2026SP|nvcc", section.OfferingKey())

	outcome := &CourseOutcome{
		CourseNumber:         "CS101",
		CLONumber:            "CLO-1",
		InstitutionShortName: "nvcc",
	}
	require.Equal(t, "CS101|CLO-1|nvcc", outcome.NaturalKey())
}

func TestRecordFromAttributesRoundTrip(t *testing.T) {
	section := &CourseSection{
		CourseNumber:         "CS101",
		TermCode:             "2026SP",
		SectionNumber:        "001",
		InstitutionShortName: "nvcc",
		InstructorEmail:      "ada@nvcc.edu",
		Enrolled:             30,
		Withdrawn:            2,
		Passed:               25,
		FailedIncomplete:     3,
	}

	parsed, err := RecordFromAttributes(KindCourseSection, section.Attributes())
	require.NoError(t, err)
	require.Equal(t, section.NaturalKey(), parsed.NaturalKey())
	require.Equal(t, section.Attributes(), parsed.Attributes())
}

func TestRecordFromAttributesRejectsMissingKeyField(t *testing.T) {
	_, err := RecordFromAttributes(KindTerm, map[string]string{
		"institution_short_name": "nvcc",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "term_code")

	_, err = RecordFromAttributes(EntityKind("mystery"), map[string]string{})
	require.Error(t, err)

	_, err = RecordFromAttributes(KindCourseOutcome, map[string]string{
		"course_number":          "CS101",
		"clo_number":             "CLO-1",
		"institution_short_name": "nvcc",
		"status":                 "BANANAS",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status")
}

func TestGraphKindsFollowDependencyOrder(t *testing.T) {
	g := NewEntityGraph()
	g.Add(&CourseOutcome{CourseNumber: "CS101", CLONumber: "CLO-1"})
	g.Add(&Course{CourseNumber: "CS101"})
	g.Add(&Institution{ShortName: "nvcc"})

	require.Equal(t, []EntityKind{KindInstitution, KindCourse, KindCourseOutcome}, g.Kinds())
	require.Equal(t, 3, g.Total())
}

func TestGraphDedupeLastWins(t *testing.T) {
	g := NewEntityGraph()
	g.Add(&Course{CourseNumber: "CS101", InstitutionShortName: "nvcc", Title: "Old title"})
	g.Add(&Course{CourseNumber: "CS201", InstitutionShortName: "nvcc", Title: "Data Structures"})
	g.Add(&Course{CourseNumber: "CS101", InstitutionShortName: "nvcc", Title: "Intro to Computing"})

	collisions := g.Dedupe()
	require.Equal(t, []string{"CS101|nvcc"}, collisions[KindCourse])

	courses := g.Records(KindCourse)
	require.Len(t, courses, 2)
	kept := g.Find(KindCourse, "CS101|nvcc").(*Course)
	require.Equal(t, "Intro to Computing", kept.Title)

	require.Nil(t, g.Dedupe())
}

func TestStampInstitutionSkipsSiteAdmins(t *testing.T) {
	g := NewEntityGraph()
	g.Add(&Course{CourseNumber: "CS101", InstitutionShortName: "stale"})
	g.Add(&User{Email: "ada@nvcc.edu", Role: RoleInstructor, InstitutionShortName: "stale"})
	g.Add(&User{Email: "root@campusmetrics.io", Role: RoleSiteAdmin})

	g.StampInstitution("nvcc")

	require.Equal(t, "nvcc", g.Find(KindCourse, "CS101|nvcc").(*Course).InstitutionShortName)
	users := g.Records(KindUser)
	require.Equal(t, "nvcc", users[0].(*User).InstitutionShortName)
	require.Empty(t, users[1].(*User).InstitutionShortName)
}

func TestValidateEnrollment(t *testing.T) {
	section := &CourseSection{
		CourseNumber:     "CS101",
		TermCode:         "2026SP",
		SectionNumber:    "001",
		Enrolled:         30,
		Withdrawn:        2,
		Passed:           25,
		FailedIncomplete: 3,
	}
	require.NoError(t, section.ValidateEnrollment())

	section.Passed = 20
	require.Error(t, section.ValidateEnrollment())

	section.CannotReconcile = true
	require.NoError(t, section.ValidateEnrollment())

	section.Enrolled = -1
	require.Error(t, section.ValidateEnrollment())
}

func TestValidateCounts(t *testing.T) {
	outcome := &CourseOutcome{
		CourseNumber:   "CS101",
		CLONumber:      "CLO-1",
		StudentsTook:   28,
		StudentsPassed: 24,
	}
	require.NoError(t, outcome.ValidateCounts(28))
	require.Error(t, outcome.ValidateCounts(20))

	outcome.StudentsPassed = 30
	require.Error(t, outcome.ValidateCounts(-1))
}

func TestOutcomeStatusTransitions(t *testing.T) {
	require.True(t, CanTransition(OutcomeDraft, OutcomeSubmitted))
	require.True(t, CanTransition(OutcomeSubmitted, OutcomeApproved))
	require.True(t, CanTransition(OutcomeRejected, OutcomeSubmitted))
	require.False(t, CanTransition(OutcomeApproved, OutcomeSubmitted))
	require.False(t, CanTransition(OutcomeNCI, OutcomeDraft))
	require.False(t, CanTransition(OutcomeDraft, OutcomeApproved))

	require.True(t, ValidOutcomeStatus(OutcomeNCI))
	require.False(t, ValidOutcomeStatus(OutcomeStatus("BANANAS")))
}

func TestLastModifiedPrefersSourceTimestamp(t *testing.T) {
	stored := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	source := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	course := &Course{UpdatedAt: stored}
	require.Equal(t, stored, course.LastModified())

	course.SourceUpdatedAt = source
	require.Equal(t, source, course.LastModified())
}
