package models

import "time"

// Term is an academic term within an institution calendar. Start and end
// dates stay in ISO "2006-01-02" form so bundles round-trip byte for byte.
type Term struct {
	ID                   string    `db:"id" json:"id"`
	TermCode             string    `db:"term_code" json:"term_code" validate:"required"`
	InstitutionShortName string    `db:"institution_short_name" json:"institution_short_name"`
	Name                 string    `db:"name" json:"name"`
	StartDate            string    `db:"start_date" json:"start_date"`
	EndDate              string    `db:"end_date" json:"end_date"`
	IsActive             bool      `db:"is_active" json:"is_active"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`

	SourceUpdatedAt time.Time `db:"-" json:"-"`
}

func (t *Term) Kind() EntityKind { return KindTerm }

func (t *Term) NaturalKey() string {
	return composeKey(t.TermCode, t.InstitutionShortName)
}

func (t *Term) Attributes() map[string]string {
	return map[string]string{
		"term_code":              t.TermCode,
		"institution_short_name": t.InstitutionShortName,
		"name":                   t.Name,
		"start_date":             t.StartDate,
		"end_date":               t.EndDate,
		"is_active":              formatBool(t.IsActive),
	}
}

func (t *Term) LastModified() time.Time {
	if !t.SourceUpdatedAt.IsZero() {
		return t.SourceUpdatedAt
	}
	return t.UpdatedAt
}

func termFromAttributes(attrs map[string]string) (*Term, error) {
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
	return &Term{
		TermCode:             code,
		InstitutionShortName: inst,
		Name:                 attrs["name"],
		StartDate:            attrs["start_date"],
		EndDate:              attrs["end_date"],
		IsActive:             isActive,
	}, nil
}
