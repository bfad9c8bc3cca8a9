package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/hien-pd-dac/tutorfinder/core"
)

type (
	Role   string
	Status string
)

// Roles
const (
	RoleStudent Role = "student"
	RoleTutor   Role = "tutor"
	RoleAdmin   Role = "admin"
)

// Statuses
const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
)

// DefaultPicture is used until a user uploads their own profile picture.
const DefaultPicture = "profile_pic/profile.jpg"

type User struct {
	ID                string      `json:"id" db:"id"`
	Username          string      `json:"username" db:"username"`
	Email             string      `json:"email" db:"email"`
	FirstName         string      `json:"first_name" db:"first_name"`
	LastName          string      `json:"last_name" db:"last_name"`
	Telephone         string      `json:"telephone" db:"telephone"`
	DateOfBirth       null.Time   `json:"date_of_birth" db:"date_of_birth"`
	Gender            string      `json:"gender" db:"gender"`
	SchoolID          null.String `json:"school_id" db:"school_id"`
	ClassName         string      `json:"class_name" db:"class_name"`
	FavoriteSubjectID null.String `json:"favorite_subject_id" db:"favorite_subject_id"`
	DistrictID        null.String `json:"district_id" db:"district_id"`
	Bio               string      `json:"bio" db:"bio"`
	Picture           string      `json:"picture" db:"picture"`
	Role              Role        `json:"role" db:"role"`
	Status            Status      `json:"status" db:"status"`
	PasswordHash      []byte      `json:"-" db:"password_hash"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt         time.Time   `json:"updated_at" db:"updated_at"` // UTC
	LastLogin         null.Time   `json:"last_login" db:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) IsActive() bool  { return u.Status == StatusActive }
func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsTutor() bool   { return u.Role == RoleTutor }
func (u User) IsStudent() bool { return u.Role == RoleStudent }

// NewUser contains information needed to register a new User.
type NewUser struct {
	Username        string `json:"username" validate:"required,max=150,username"`
	Email           string `json:"email" validate:"required,max=254,email"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	IsTutor         bool   `json:"is_tutor"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nu.Username = core.CleanString(nu.Username)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateProfile defines what information a User may change on their own profile.
// nil fields are left untouched; empty strings clear optional fields.
type UpdateProfile struct {
	FirstName         *string `json:"first_name" validate:"omitempty,max=20"`
	LastName          *string `json:"last_name" validate:"omitempty,max=20"`
	Email             *string `json:"email" validate:"omitempty,max=254,email"`
	Telephone         *string `json:"telephone" validate:"omitempty,max=11,numeric"`
	DateOfBirth       *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender            *string `json:"gender" validate:"omitempty,oneof=M F"`
	SchoolID          *string `json:"school_id" validate:"omitempty,uuid"`
	ClassName         *string `json:"class_name" validate:"omitempty,max=10"`
	FavoriteSubjectID *string `json:"favorite_subject_id" validate:"omitempty,uuid"`
	DistrictID        *string `json:"district_id" validate:"omitempty,uuid"`
	Bio               *string `json:"bio" validate:"omitempty,max=256"`
}

func (up *UpdateProfile) clean() {
	for _, s := range []*string{
		up.FirstName, up.LastName, up.Telephone, up.DateOfBirth, up.Gender,
		up.SchoolID, up.ClassName, up.FavoriteSubjectID, up.DistrictID, up.Bio,
	} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
	if up.Email != nil {
		*up.Email = core.CleanString(*up.Email, true /* lower */)
	}
}

// apply copies the provided fields onto usr.
func (up UpdateProfile) apply(usr *User) error {
	setStr := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setNull := func(dst *null.String, src *string) {
		if src != nil {
			*dst = null.NewString(*src, *src != "")
		}
	}

	setStr(&usr.FirstName, up.FirstName)
	setStr(&usr.LastName, up.LastName)
	if up.Email != nil && *up.Email != "" {
		usr.Email = *up.Email
	}
	setStr(&usr.Telephone, up.Telephone)
	setStr(&usr.Gender, up.Gender)
	setStr(&usr.ClassName, up.ClassName)
	setStr(&usr.Bio, up.Bio)
	setNull(&usr.SchoolID, up.SchoolID)
	setNull(&usr.FavoriteSubjectID, up.FavoriteSubjectID)
	setNull(&usr.DistrictID, up.DistrictID)

	if up.DateOfBirth != nil {
		if *up.DateOfBirth == "" {
			usr.DateOfBirth = null.Time{}
		} else {
			dob, err := time.Parse("2006-01-02", *up.DateOfBirth)
			if err != nil {
				return core.NewValidationError(err, core.FieldError{Field: "date_of_birth", Error: "enter a valid date"})
			}
			usr.DateOfBirth = null.TimeFrom(dob)
		}
	}
	return nil
}

// Audience narrows user or post listings by role.
type Audience string

const (
	AudienceAll     Audience = "all"
	AudienceStudent Audience = "student"
	AudienceTutor   Audience = "tutor"
)

// ParseAudience maps the `filter` query value to an Audience, defaulting to AudienceAll.
func ParseAudience(s string) Audience {
	switch Audience(core.CleanString(s, true /* lower */)) {
	case AudienceStudent:
		return AudienceStudent
	case AudienceTutor:
		return AudienceTutor
	default:
		return AudienceAll
	}
}

// Role returns the author role matched by the Audience; empty for AudienceAll.
func (a Audience) Role() Role {
	switch a {
	case AudienceStudent:
		return RoleStudent
	case AudienceTutor:
		return RoleTutor
	default:
		return ""
	}
}

type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail []string
}

type QueryFilter struct {
	DistrictID    string
	Role          Role
	Status        Status
	CreatedBefore time.Time
}
