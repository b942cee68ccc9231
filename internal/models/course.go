package models

import "time"

// Course is a catalog course identified by course number within an institution.
type Course struct {
	ID                   string    `db:"id" json:"id"`
	CourseNumber         string    `db:"course_number" json:"course_number" validate:"required"`
	InstitutionShortName string    `db:"institution_short_name" json:"institution_short_name"`
	Title                string    `db:"title" json:"title"`
	ProgramName          string    `db:"program_name" json:"program_name"`
	Credits              int       `db:"credits" json:"credits"`
	IsActive             bool      `db:"is_active" json:"is_active"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`

	SourceUpdatedAt time.Time `db:"-" json:"-"`
}

func (c *Course) Kind() EntityKind { return KindCourse }

func (c *Course) NaturalKey() string {
	return composeKey(c.CourseNumber, c.InstitutionShortName)
}

func (c *Course) Attributes() map[string]string {
	return map[string]string{
		"course_number":          c.CourseNumber,
		"institution_short_name": c.InstitutionShortName,
		"title":                  c.Title,
		"program_name":           c.ProgramName,
		"credits":                formatInt(c.Credits),
		"is_active":              formatBool(c.IsActive),
	}
}

func (c *Course) LastModified() time.Time {
	if !c.SourceUpdatedAt.IsZero() {
		return c.SourceUpdatedAt
	}
	return c.UpdatedAt
}

func courseFromAttributes(attrs map[string]string) (*Course, error) {
	number, err := requireAttr(attrs, "course_number")
	if err != nil {
		return nil, err
	}
	inst, err := requireAttr(attrs, "institution_short_name")
	if err != nil {
		return nil, err
	}
	credits, err := parseInt(attrs, "credits")
	if err != nil {
		return nil, err
	}
	isActive, err := parseBool(attrs, "is_active")
	if err != nil {
		return nil, err
	}
	return &Course{
		CourseNumber:         number,
		InstitutionShortName: inst,
		Title:                attrs["title"],
		ProgramName:          attrs["program_name"],
		Credits:              credits,
		IsActive:             isActive,
	}, nil
}
