package models

import "time"

// CourseOffering is a course taught in a specific term.
type CourseOffering struct {
	ID                   string    `db:"id" json:"id"`
	CourseNumber         string    `db:"course_number" json:"course_number" validate:"required"`
	TermCode             string    `db:"term_code" json:"term_code" validate:"required"`
	InstitutionShortName string    `db:"institution_short_name" json:"institution_short_name"`
	DeliveryMode         string    `db:"delivery_mode" json:"delivery_mode"`
	IsActive             bool      `db:"is_active" json:"is_active"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`

	SourceUpdatedAt time.Time `db:"-" json:"-"`
}

func (o *CourseOffering) Kind() EntityKind { return KindCourseOffering }

func (o *CourseOffering) NaturalKey() string {
	return composeKey(o.CourseNumber, o.TermCode, o.InstitutionShortName)
}

func (o *CourseOffering) Attributes() map[string]string {
	return map[string]string{
		"course_number":          o.CourseNumber,
		"term_code":              o.TermCode,
		"institution_short_name": o.InstitutionShortName,
		"delivery_mode":          o.DeliveryMode,
		"is_active":              formatBool(o.IsActive),
	}
}

func (o *CourseOffering) LastModified() time.Time {
	if !o.SourceUpdatedAt.IsZero() {
		return o.SourceUpdatedAt
	}
	return o.UpdatedAt
}

func offeringFromAttributes(attrs map[string]string) (*CourseOffering, error) {
	number, err := requireAttr(attrs, "course_number")
	if err != nil {
		return nil, err
	}
	code, err := requireAttr(attrs, "term_code")
	if err != nil {
		return nil, err
	}
	inst, err := requireAttr(attrs, "institution_short_name")
	if err != nil {
		return nil, err
	}
	isActive, err := parseBool(attrs, "is_active")
	if err != nil {
		return nil, err
	}
	return &CourseOffering{
		CourseNumber:         number,
		TermCode:             code,
		InstitutionShortName: inst,
		DeliveryMode:         attrs["delivery_mode"],
		IsActive:             isActive,
	}, nil
}
