package adapter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/campusmetrics/clo-api/internal/models"
)

// RegistrarAdapterID identifies the flat registrar sheet format.
const RegistrarAdapterID = "registrar-sheet"

// registrarColumns are the headers required in row 1 of the first sheet.
var registrarColumns = []string{
	"course_number",
	"course_title",
	"term_code",
	"section_number",
	"instructor_name",
	"instructor_email",
	"enrolled",
	"withdrawn",
	"passed",
	"failed_incomplete",
}

// optional assessment columns; rows without a clo_number carry no outcome.
var registrarOutcomeColumns = []string{
	"clo_number",
	"clo_description",
	"students_took",
	"students_passed",
}

// RegistrarAdapter parses the registrar's denormalized XLSX export: one row
// per (section, outcome) pair with course, term and instructor fields
// repeated. Import-only; there is no faithful way to regenerate the
// registrar's own sheet, so it does not implement Exporter.
type RegistrarAdapter struct{}

// NewRegistrarAdapter returns the registrar sheet adapter.
func NewRegistrarAdapter() *RegistrarAdapter {
	return &RegistrarAdapter{}
}

func (a *RegistrarAdapter) Metadata() Metadata {
	return Metadata{
		ID:            RegistrarAdapterID,
		Name:          "Registrar flat sheet (XLSX)",
		Version:       "1",
		Bidirectional: false,
		Kinds: []models.EntityKind{
			models.KindProgram,
			models.KindCourse,
			models.KindTerm,
			models.KindCourseOffering,
			models.KindUser,
			models.KindCourseSection,
			models.KindCourseOutcome,
		},
	}
}

// ValidateCompatibility checks the file opens as a workbook and that the
// first sheet carries the required registrar columns.
func (a *RegistrarAdapter) ValidateCompatibility(f File) (bool, string) {
	header, err := a.headerRow(f)
	if err != nil {
		return false, err.Error()
	}
	var missing []string
	for _, col := range registrarColumns {
		if _, ok := header[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return false, "missing required columns: " + strings.Join(missing, ", ")
	}
	return true, ""
}

func (a *RegistrarAdapter) DetectDataTypes(f File) ([]models.EntityKind, error) {
	if ok, reason := a.ValidateCompatibility(f); !ok {
		return nil, fmt.Errorf("%s", reason)
	}
	return a.Metadata().Kinds, nil
}

// Parse flattens the sheet into the normalized graph. Repeated course,
// term, offering and instructor cells collapse silently when identical; a
// warning is emitted only when repeated rows disagree.
func (a *RegistrarAdapter) Parse(f File, opts ParseOptions) (*models.EntityGraph, []Warning, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(f.Content))
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close() //nolint:errcheck

	sheet := wb.GetSheetName(0)
	rows, err := wb.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return models.NewEntityGraph(), nil, nil
	}

	colIdx := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		colIdx[normalizeHeader(name)] = i
	}

	graph := models.NewEntityGraph()
	seen := make(map[string]models.Record)
	var warnings []Warning

	for rowNum, row := range rows[1:] {
		cell := func(name string) string {
			idx, ok := colIdx[name]
			if !ok || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		courseNumber := cell("course_number")
		termCode := cell("term_code")
		sectionNumber := cell("section_number")
		if courseNumber == "" && termCode == "" && sectionNumber == "" {
			continue
		}
		if courseNumber == "" || termCode == "" || sectionNumber == "" {
			return nil, nil, fmt.Errorf("row %d: course_number, term_code and section_number are required", rowNum+2)
		}

		inst := opts.InstitutionShortName

		if program := departmentFromCourseNumber(courseNumber); program != "" {
			addUnique(graph, seen, &models.Program{
				Name:                 program,
				InstitutionShortName: inst,
				IsActive:             true,
			}, &warnings)
		}

		addUnique(graph, seen, &models.Course{
			CourseNumber:         courseNumber,
			InstitutionShortName: inst,
			Title:                cell("course_title"),
			ProgramName:          departmentFromCourseNumber(courseNumber),
			IsActive:             true,
		}, &warnings)

		addUnique(graph, seen, &models.Term{
			TermCode:             termCode,
			InstitutionShortName: inst,
			Name:                 termCode,
			IsActive:             true,
		}, &warnings)

		addUnique(graph, seen, &models.CourseOffering{
			CourseNumber:         courseNumber,
			TermCode:             termCode,
			InstitutionShortName: inst,
			IsActive:             true,
		}, &warnings)

		instructorEmail := cell("instructor_email")
		if instructorEmail != "" {
			addUnique(graph, seen, &models.User{
				Email:                strings.ToLower(instructorEmail),
				FullName:             cell("instructor_name"),
				Role:                 models.RoleInstructor,
				InstitutionShortName: inst,
				IsActive:             true,
			}, &warnings)
		}

		section := &models.CourseSection{
			CourseNumber:         courseNumber,
			TermCode:             termCode,
			SectionNumber:        sectionNumber,
			InstitutionShortName: inst,
			InstructorEmail:      strings.ToLower(instructorEmail),
			IsActive:             true,
		}
		var convErr error
		section.Enrolled, convErr = cellInt(cell, "enrolled", rowNum+2, convErr)
		section.Withdrawn, convErr = cellInt(cell, "withdrawn", rowNum+2, convErr)
		section.Passed, convErr = cellInt(cell, "passed", rowNum+2, convErr)
		section.FailedIncomplete, convErr = cellInt(cell, "failed_incomplete", rowNum+2, convErr)
		if convErr != nil {
			return nil, nil, convErr
		}
		addUnique(graph, seen, section, &warnings)

		if clo := cell("clo_number"); clo != "" {
			outcome := &models.CourseOutcome{
				CourseNumber:         courseNumber,
				CLONumber:            clo,
				InstitutionShortName: inst,
				Description:          cell("clo_description"),
				TermCode:             termCode,
				SectionNumber:        sectionNumber,
				Status:               models.OutcomeDraft,
			}
			outcome.StudentsTook, convErr = cellInt(cell, "students_took", rowNum+2, convErr)
			outcome.StudentsPassed, convErr = cellInt(cell, "students_passed", rowNum+2, convErr)
			if convErr != nil {
				return nil, nil, convErr
			}
			addUnique(graph, seen, outcome, &warnings)
		}
	}

	// Differing repeats were added twice; collapse to the last occurrence.
	graph.Dedupe()

	return graph, warnings, nil
}

func (a *RegistrarAdapter) headerRow(f File) (map[string]int, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(f.Content))
	if err != nil {
		return nil, fmt.Errorf("not an XLSX workbook")
	}
	defer wb.Close() //nolint:errcheck

	sheet := wb.GetSheetName(0)
	rows, err := wb.GetRows(sheet)
	if err != nil || len(rows) == 0 {
		return nil, fmt.Errorf("first sheet has no header row")
	}
	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[normalizeHeader(name)] = i
	}
	return header, nil
}

// addUnique inserts a record unless an identical one was already seen.
// Differing repeats collapse last-wins with a warning.
func addUnique(graph *models.EntityGraph, seen map[string]models.Record, rec models.Record, warnings *[]Warning) {
	key := string(rec.Kind()) + "\x00" + rec.NaturalKey()
	prior, ok := seen[key]
	if !ok {
		seen[key] = rec
		graph.Add(rec)
		return
	}
	if attributesEqual(prior.Attributes(), rec.Attributes()) {
		return
	}
	seen[key] = rec
	graph.Add(rec)
	*warnings = append(*warnings, Warning{
		Kind:       rec.Kind(),
		NaturalKey: rec.NaturalKey(),
		Message:    "conflicting duplicate rows in file, kept last occurrence",
	})
}

func attributesEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

func cellInt(cell func(string) string, name string, rowNum int, prev error) (int, error) {
	if prev != nil {
		return 0, prev
	}
	raw := cell(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("row %d: column %s: %w", rowNum, name, err)
	}
	return v, nil
}

func normalizeHeader(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}

// departmentFromCourseNumber derives the owning program from the alphabetic
// course-number prefix, e.g. "CS101" -> "CS".
func departmentFromCourseNumber(courseNumber string) string {
	for i, r := range courseNumber {
		if unicode.IsDigit(r) {
			return strings.ToUpper(strings.TrimSpace(courseNumber[:i]))
		}
	}
	return ""
}
