package adapter

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campusmetrics/clo-api/internal/models"
)

func sampleGraph() *models.EntityGraph {
	graph := models.NewEntityGraph()
	graph.Add(&models.Institution{ShortName: "nvcc", Name: "Northern Valley CC", IsActive: true})
	graph.Add(&models.Program{Name: "CS", InstitutionShortName: "nvcc", Description: "Computer Science", IsActive: true})
	graph.Add(&models.Course{CourseNumber: "CS101", InstitutionShortName: "nvcc", Title: "Intro to Computing", ProgramName: "CS", Credits: 3, IsActive: true})
	graph.Add(&models.Term{TermCode: "2026SP", InstitutionShortName: "nvcc", Name: "Spring 2026", StartDate: "2026-01-12", EndDate: "2026-05-08", IsActive: true})
	graph.Add(&models.CourseSection{CourseNumber: "CS101", TermCode: "2026SP", SectionNumber: "001", InstitutionShortName: "nvcc", InstructorEmail: "ada@nvcc.edu", Enrolled: 30, Withdrawn: 2, Passed: 25, FailedIncomplete: 3, IsActive: true})
	return graph
}

func TestBundleRoundTrip(t *testing.T) {
	a := NewBundleAdapter()
	graph := sampleGraph()

	data, err := a.FormatExport(graph, ExportOptions{InstitutionShortName: "nvcc", GeneratedAt: time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)

	parsed, warnings, err := a.Parse(File{Name: "nvcc.zip", Content: data}, ParseOptions{InstitutionShortName: "nvcc"})
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Equal(t, graph.Total(), parsed.Total())

	for _, kind := range graph.Kinds() {
		for _, want := range graph.Records(kind) {
			got := parsed.Find(kind, want.NaturalKey())
			require.NotNil(t, got, "missing %s %s", kind, want.NaturalKey())
			require.Equal(t, want.Attributes(), got.Attributes())
		}
	}
}

func TestBundleExportDeterministic(t *testing.T) {
	a := NewBundleAdapter()
	opts := ExportOptions{InstitutionShortName: "nvcc", GeneratedAt: time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC)}

	first, err := a.FormatExport(sampleGraph(), opts)
	require.NoError(t, err)
	second, err := a.FormatExport(sampleGraph(), opts)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestBundleExportExcludesCredentials(t *testing.T) {
	a := NewBundleAdapter()
	graph := models.NewEntityGraph()
	graph.Add(&models.User{
		Email:                "ada@nvcc.edu",
		FullName:             "Ada Lovelace",
		Role:                 models.RoleInstructor,
		InstitutionShortName: "nvcc",
		PasswordHash:         "$2a$10$supersecrethash",
		ResetToken:           "tok-123",
		IsActive:             true,
	})

	data, err := a.FormatExport(graph, ExportOptions{InstitutionShortName: "nvcc", GeneratedAt: time.Now()})
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	zf := findZipFile(zr, "users.csv")
	require.NotNil(t, zf)
	rc, err := zf.Open()
	require.NoError(t, err)
	defer rc.Close() //nolint:errcheck
	users, err := io.ReadAll(rc)
	require.NoError(t, err)

	require.NotContains(t, string(users), "supersecrethash")
	require.NotContains(t, string(users), "tok-123")
	require.Contains(t, string(users), "ada@nvcc.edu")
}

func TestBundleValidateCompatibility(t *testing.T) {
	a := NewBundleAdapter()

	ok, reason := a.ValidateCompatibility(File{Name: "notes.txt", Content: []byte("plain text")})
	require.False(t, ok)
	require.NotEmpty(t, reason)

	data, err := a.FormatExport(sampleGraph(), ExportOptions{InstitutionShortName: "nvcc", GeneratedAt: time.Now()})
	require.NoError(t, err)
	ok, reason = a.ValidateCompatibility(File{Name: "nvcc.zip", Content: data})
	require.True(t, ok, reason)
}

func TestBundleParseReportsDuplicates(t *testing.T) {
	a := NewBundleAdapter()
	graph := models.NewEntityGraph()
	graph.Add(&models.Course{CourseNumber: "CS101", InstitutionShortName: "nvcc", Title: "Old Title", ProgramName: "CS", Credits: 3, IsActive: true})
	graph.Add(&models.Course{CourseNumber: "CS101", InstitutionShortName: "nvcc", Title: "New Title", ProgramName: "CS", Credits: 3, IsActive: true})

	data, err := a.FormatExport(graph, ExportOptions{InstitutionShortName: "nvcc", GeneratedAt: time.Now()})
	require.NoError(t, err)

	parsed, warnings, err := a.Parse(File{Name: "nvcc.zip", Content: data}, ParseOptions{InstitutionShortName: "nvcc"})
	require.NoError(t, err)
	require.Equal(t, 1, parsed.Total())
	require.Len(t, warnings, 1)
	require.True(t, strings.Contains(warnings[0].Message, "duplicate"))
}
