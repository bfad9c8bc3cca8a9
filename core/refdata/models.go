package refdata

import (
	"strconv"

	"github.com/hien-pd-dac/tutorfinder/core"
)

// Kind names one of the shared reference tables.
type Kind string

const (
	KindDistrict   Kind = "district"
	KindSchool     Kind = "school"
	KindSubject    Kind = "subject"
	KindClassLevel Kind = "class_level"

	MinClassLevel = 1
	MaxClassLevel = 12
)

var Kinds = []Kind{KindDistrict, KindSchool, KindSubject, KindClassLevel}

func (k Kind) Valid() bool {
	for _, kind := range Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Entry is a row of any reference table. For class levels, Name holds the level number.
type Entry struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// NewEntry contains information needed to create a new Entry.
type NewEntry struct {
	Kind Kind   `json:"kind" validate:"required,oneof=district school subject class_level"`
	Name string `json:"name" validate:"required,max=100"`
}

func (ne *NewEntry) Clean() error {
	ne.Name = core.CleanString(ne.Name)
	if ne.Kind != KindClassLevel {
		return nil
	}
	lvl, err := strconv.Atoi(ne.Name)
	if err != nil || lvl < MinClassLevel || lvl > MaxClassLevel {
		return core.NewValidationError(nil, core.FieldError{Field: "name", Error: "class level must be between 1 and 12"})
	}
	ne.Name = strconv.Itoa(lvl)
	return nil
}
