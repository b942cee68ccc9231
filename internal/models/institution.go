package models

import "time"

// Institution is the tenant root of the entity graph.
type Institution struct {
	ID        string    `db:"id" json:"id"`
	ShortName string    `db:"short_name" json:"short_name" validate:"required"`
	Name      string    `db:"name" json:"name"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// SourceUpdatedAt carries the source file's modification stamp for
	// merge resolution; never persisted.
	SourceUpdatedAt time.Time `db:"-" json:"-"`
}

func (i *Institution) Kind() EntityKind { return KindInstitution }

func (i *Institution) NaturalKey() string { return i.ShortName }

func (i *Institution) Attributes() map[string]string {
	return map[string]string{
		"short_name": i.ShortName,
		"name":       i.Name,
		"is_active":  formatBool(i.IsActive),
	}
}

func (i *Institution) LastModified() time.Time {
	if !i.SourceUpdatedAt.IsZero() {
		return i.SourceUpdatedAt
	}
	return i.UpdatedAt
}

func institutionFromAttributes(attrs map[string]string) (*Institution, error) {
	shortName, err := requireAttr(attrs, "short_name")
	if err != nil {
		return nil, err
	}
	isActive, err := parseBool(attrs, "is_active")
	if err != nil {
		return nil, err
	}
	return &Institution{
		ShortName: shortName,
		Name:      attrs["name"],
		IsActive:  isActive,
	}, nil
}
