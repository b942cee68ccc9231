package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campusmetrics/clo-api/internal/models"
)

type stubLookup struct {
	records map[string]models.Record
	err     error
}

func (s *stubLookup) GetByNaturalKey(_ context.Context, kind models.EntityKind, key string) (models.Record, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records[string(kind)+"|"+key], nil
}

func testCourse(title string) *models.Course {
	return &models.Course{
		CourseNumber:         "CS101",
		InstitutionShortName: "nvcc",
		Title:                title,
		ProgramName:          "CS",
		IsActive:             true,
	}
}

func TestDetectClassifiesCreateNoopConflict(t *testing.T) {
	stored := testCourse("Intro to Computing")
	lookup := &stubLookup{records: map[string]models.Record{
		"course|" + stored.NaturalKey(): stored,
	}}

	graph := models.NewEntityGraph()
	graph.Add(testCourse("Intro to Computing")) // identical -> noop
	other := testCourse("Databases")
	other.CourseNumber = "CS305"
	graph.Add(other) // unknown key -> create

	plan, err := NewDetector(lookup).Detect(context.Background(), graph)
	require.NoError(t, err)
	require.Len(t, plan.Actions, 2)
	require.Equal(t, 1, plan.Creates)
	require.Equal(t, 1, plan.Noops)
	require.Equal(t, 0, plan.Conflicts)

	graph2 := models.NewEntityGraph()
	graph2.Add(testCourse("Introduction to Computing"))
	plan2, err := NewDetector(lookup).Detect(context.Background(), graph2)
	require.NoError(t, err)
	require.Equal(t, 1, plan2.Conflicts)
	require.Equal(t, ActionConflict, plan2.Actions[0].Type)
	require.Equal(t, []FieldDiff{{
		Field:    "title",
		Stored:   "Intro to Computing",
		Incoming: "Introduction to Computing",
	}}, plan2.Actions[0].Diffs)
}

func TestDetectPropagatesLookupError(t *testing.T) {
	lookup := &stubLookup{err: errors.New("connection reset")}
	graph := models.NewEntityGraph()
	graph.Add(testCourse("Intro"))

	_, err := NewDetector(lookup).Detect(context.Background(), graph)
	require.Error(t, err)
}

func TestDiffAttributesSortedAndStable(t *testing.T) {
	stored := map[string]string{"title": "a", "program_name": "CS", "is_active": "true"}
	incoming := map[string]string{"title": "b", "program_name": "SE", "is_active": "true"}

	first := DiffAttributes(stored, incoming)
	second := DiffAttributes(stored, incoming)
	require.Equal(t, first, second)
	require.Equal(t, "program_name", first[0].Field)
	require.Equal(t, "title", first[1].Field)
}

func TestDiffAttributesMissingField(t *testing.T) {
	diffs := DiffAttributes(
		map[string]string{"title": "a"},
		map[string]string{"title": "a", "delivery_mode": "online"},
	)
	require.Len(t, diffs, 1)
	require.Equal(t, "delivery_mode", diffs[0].Field)
	require.Empty(t, diffs[0].Stored)
	require.Equal(t, "online", diffs[0].Incoming)
}
