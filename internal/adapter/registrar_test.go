package adapter

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/campusmetrics/clo-api/internal/models"
)

func registrarWorkbook(t *testing.T, rows [][]interface{}) File {
	t.Helper()
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	header := []interface{}{"course_number", "course_title", "term_code", "section_number",
		"instructor_name", "instructor_email", "enrolled", "withdrawn", "passed", "failed_incomplete",
		"clo_number", "clo_description", "students_took", "students_passed"}
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &header))
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, wb.SetSheetRow(sheet, cell, &row))
	}
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)
	return File{Name: "registrar.xlsx", Content: buf.Bytes()}
}

func TestRegistrarParseFlatSheet(t *testing.T) {
	file := registrarWorkbook(t, [][]interface{}{
		{"CS101", "Intro to Computing", "2026SP", "001", "Ada Lovelace", "ada@nvcc.edu", 30, 2, 25, 3, "CLO1", "Explain basic algorithms", 28, 25},
		{"CS101", "Intro to Computing", "2026SP", "001", "Ada Lovelace", "ada@nvcc.edu", 30, 2, 25, 3, "CLO2", "Write simple programs", 28, 24},
		{"MATH200", "Calculus II", "2026SP", "002", "Alan Turing", "alan@nvcc.edu", 24, 1, 20, 3, "", "", 0, 0},
	})

	a := NewRegistrarAdapter()
	ok, reason := a.ValidateCompatibility(file)
	require.True(t, ok, reason)

	graph, warnings, err := a.Parse(file, ParseOptions{InstitutionShortName: "nvcc"})
	require.NoError(t, err)
	require.Empty(t, warnings)

	// Repeated course/term/instructor cells collapse to one record each.
	require.Len(t, graph.Records(models.KindProgram), 2)
	require.Len(t, graph.Records(models.KindCourse), 2)
	require.Len(t, graph.Records(models.KindTerm), 1)
	require.Len(t, graph.Records(models.KindCourseOffering), 2)
	require.Len(t, graph.Records(models.KindUser), 2)
	require.Len(t, graph.Records(models.KindCourseSection), 2)
	require.Len(t, graph.Records(models.KindCourseOutcome), 2)

	course, ok := graph.Find(models.KindCourse, "CS101|nvcc").(*models.Course)
	require.True(t, ok)
	require.Equal(t, "CS", course.ProgramName)
	require.Equal(t, "Intro to Computing", course.Title)

	mathProgram := graph.Find(models.KindProgram, "MATH|nvcc")
	require.NotNil(t, mathProgram)

	section, ok := graph.Find(models.KindCourseSection, "CS101|2026SP|001|nvcc").(*models.CourseSection)
	require.True(t, ok)
	require.Equal(t, 30, section.Enrolled)
	require.Equal(t, "ada@nvcc.edu", section.InstructorEmail)
	require.NoError(t, section.ValidateEnrollment())

	outcome, ok := graph.Find(models.KindCourseOutcome, "CS101|CLO2|nvcc").(*models.CourseOutcome)
	require.True(t, ok)
	require.Equal(t, 28, outcome.StudentsTook)
	require.Equal(t, 24, outcome.StudentsPassed)
	require.Equal(t, models.OutcomeDraft, outcome.Status)
}

func TestRegistrarConflictingDuplicateRowsWarn(t *testing.T) {
	file := registrarWorkbook(t, [][]interface{}{
		{"CS101", "Intro to Computing", "2026SP", "001", "Ada Lovelace", "ada@nvcc.edu", 30, 2, 25, 3, "CLO1", "Explain basic algorithms", 28, 25},
		{"CS101", "Intro to Programming", "2026SP", "001", "Ada Lovelace", "ada@nvcc.edu", 30, 2, 25, 3, "CLO2", "Write simple programs", 28, 24},
	})

	graph, warnings, err := NewRegistrarAdapter().Parse(file, ParseOptions{InstitutionShortName: "nvcc"})
	require.NoError(t, err)
	require.NotEmpty(t, warnings)

	// Last occurrence wins.
	course := graph.Find(models.KindCourse, "CS101|nvcc").(*models.Course)
	require.Equal(t, "Intro to Programming", course.Title)
}

func TestRegistrarRejectsMissingColumns(t *testing.T) {
	wb := excelize.NewFile()
	sheet := wb.GetSheetName(0)
	header := []interface{}{"course_number", "term_code"}
	require.NoError(t, wb.SetSheetRow(sheet, "A1", &header))
	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)

	ok, reason := NewRegistrarAdapter().ValidateCompatibility(File{Name: "short.xlsx", Content: buf.Bytes()})
	require.False(t, ok)
	require.Contains(t, reason, "section_number")
}

func TestRegistrarRejectsNonWorkbook(t *testing.T) {
	ok, reason := NewRegistrarAdapter().ValidateCompatibility(File{Name: "notes.txt", Content: []byte("plain")})
	require.False(t, ok)
	require.NotEmpty(t, reason)
}

func TestRegistrarRowMissingRequiredField(t *testing.T) {
	file := registrarWorkbook(t, [][]interface{}{
		{"CS101", "Intro to Computing", "", "001", "Ada Lovelace", "ada@nvcc.edu", 30, 2, 25, 3, "", "", 0, 0},
	})

	_, _, err := NewRegistrarAdapter().Parse(file, ParseOptions{InstitutionShortName: "nvcc"})
	require.Error(t, err)
}
