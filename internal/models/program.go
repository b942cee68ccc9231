package models

import "time"

// Program is an academic program (department) within an institution.
type Program struct {
	ID                   string    `db:"id" json:"id"`
	Name                 string    `db:"name" json:"name" validate:"required"`
	InstitutionShortName string    `db:"institution_short_name" json:"institution_short_name"`
	Description          string    `db:"description" json:"description"`
	IsActive             bool      `db:"is_active" json:"is_active"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`

	SourceUpdatedAt time.Time `db:"-" json:"-"`
}

func (p *Program) Kind() EntityKind { return KindProgram }

func (p *Program) NaturalKey() string {
	return composeKey(p.Name, p.InstitutionShortName)
}

func (p *Program) Attributes() map[string]string {
	return map[string]string{
		"name":                   p.Name,
		"institution_short_name": p.InstitutionShortName,
		"description":            p.Description,
		"is_active":              formatBool(p.IsActive),
	}
}

func (p *Program) LastModified() time.Time {
	if !p.SourceUpdatedAt.IsZero() {
		return p.SourceUpdatedAt
	}
	return p.UpdatedAt
}

func programFromAttributes(attrs map[string]string) (*Program, error) {
	name, err := requireAttr(attrs, "name")
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
	return &Program{
		Name:                 name,
		InstitutionShortName: inst,
		Description:          attrs["description"],
		IsActive:             isActive,
	}, nil
}
