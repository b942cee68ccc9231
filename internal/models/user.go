package models

import "time"

// UserRole represents the available roles for the permission system.
type UserRole string

const (
	RoleInstructor       UserRole = "INSTRUCTOR"
	RoleProgramAdmin     UserRole = "PROGRAM_ADMIN"
	RoleInstitutionAdmin UserRole = "INSTITUTION_ADMIN"
	RoleSiteAdmin        UserRole = "SITE_ADMIN"
)

// ValidRole reports whether the role is one of the known values.
func ValidRole(r UserRole) bool {
	switch r {
	case RoleInstructor, RoleProgramAdmin, RoleInstitutionAdmin, RoleSiteAdmin:
		return true
	}
	return false
}

// User is an application user. PasswordHash never leaves the storage layer:
// it is excluded from JSON and from the export attribute set.
type User struct {
	ID                   string     `db:"id" json:"id"`
	Email                string     `db:"email" json:"email" validate:"required,email"`
	FullName             string     `db:"full_name" json:"full_name"`
	Role                 UserRole   `db:"role" json:"role"`
	InstitutionShortName string     `db:"institution_short_name" json:"institution_short_name"`
	PasswordHash         string     `db:"password_hash" json:"-"`
	ResetToken           string     `db:"reset_token" json:"-"`
	IsActive             bool       `db:"is_active" json:"is_active"`
	LastLogin            *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`

	SourceUpdatedAt time.Time `db:"-" json:"-"`
}

func (u *User) Kind() EntityKind { return KindUser }

func (u *User) NaturalKey() string { return u.Email }

func (u *User) Attributes() map[string]string {
	return map[string]string{
		"email":                  u.Email,
		"full_name":              u.FullName,
		"role":                   string(u.Role),
		"institution_short_name": u.InstitutionShortName,
		"is_active":              formatBool(u.IsActive),
	}
}

func (u *User) LastModified() time.Time {
	if !u.SourceUpdatedAt.IsZero() {
		return u.SourceUpdatedAt
	}
	return u.UpdatedAt
}

func userFromAttributes(attrs map[string]string) (*User, error) {
	email, err := requireAttr(attrs, "email")
	if err != nil {
		return nil, err
	}
	isActive, err := parseBool(attrs, "is_active")
	if err != nil {
		return nil, err
	}
	return &User{
		Email:                email,
		FullName:             attrs["full_name"],
		Role:                 UserRole(attrs["role"]),
		InstitutionShortName: attrs["institution_short_name"],
		IsActive:             isActive,
	}, nil
}
