// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package dataset loads the employee record collection and holds it in
// memory as an immutable, ordered Dataset.
package dataset

import "time"

// Field names, as they appear in the source file and in responses.
const (
	FieldFirstName         = "first_name"
	FieldLastName          = "last_name"
	FieldSalary            = "salary"
	FieldYearsOfExperience = "years_of_experience"
	FieldDateOfBirth       = "date_of_birth"
	FieldGender            = "gender"
	FieldIndustry          = "industry"
	FieldAge               = "age"
)

// SourceFields lists the fields every source must provide, in column order.
var SourceFields = []string{
	FieldFirstName,
	FieldLastName,
	FieldSalary,
	FieldYearsOfExperience,
	FieldDateOfBirth,
	FieldGender,
	FieldIndustry,
}

// Fields lists all Record fields, including the derived age, in column
// order.
var Fields = append(append([]string{}, SourceFields...), FieldAge)

// DateOfBirthLayout is the day/month/year layout of date_of_birth. Day and
// month may be written with or without a leading zero.
const DateOfBirthLayout = "2/1/2006"

// Record is one employee. A nil field is a missing value: absent or null in
// the source, or not coercible to the field's type.
type Record struct {
	FirstName         *string
	LastName          *string
	Salary            *float64
	YearsOfExperience *float64
	DateOfBirth       *time.Time
	Gender            *string
	Industry          *string

	// Age is derived from DateOfBirth when the dataset is loaded.
	Age *int
}

// Missing reports whether the named field is missing. Unknown field names
// report true.
func (r *Record) Missing(field string) bool {
	switch field {
	case FieldFirstName:
		return r.FirstName == nil
	case FieldLastName:
		return r.LastName == nil
	case FieldSalary:
		return r.Salary == nil
	case FieldYearsOfExperience:
		return r.YearsOfExperience == nil
	case FieldDateOfBirth:
		return r.DateOfBirth == nil
	case FieldGender:
		return r.Gender == nil
	case FieldIndustry:
		return r.Industry == nil
	case FieldAge:
		return r.Age == nil
	}
	return true
}

// Dataset is the loaded record collection. It is never modified after it is
// built, so it can be shared by any number of readers without locking.
type Dataset struct {
	records  []Record
	path     string
	loadedAt time.Time
}

// New returns a Dataset over records. The slice is owned by the Dataset
// afterwards.
func New(records []Record) *Dataset {
	return &Dataset{records: records}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Records returns the records in dataset order. Callers must not modify the
// returned slice or the records in it.
func (d *Dataset) Records() []Record {
	return d.records
}

// Path returns the source file the dataset was read from, if any.
func (d *Dataset) Path() string {
	return d.path
}

// LoadedAt returns the time the dataset was built; ages are relative to it.
func (d *Dataset) LoadedAt() time.Time {
	return d.loadedAt
}

// MissingCount returns how many records are missing field.
func (d *Dataset) MissingCount(field string) int {
	n := 0
	for i := range d.records {
		if d.records[i].Missing(field) {
			n++
		}
	}
	return n
}

// Age returns the age in whole years of someone born on born, as of now.
func Age(born, now time.Time) int {
	age := now.Year() - born.Year()
	if now.Month() < born.Month() || (now.Month() == born.Month() && now.Day() < born.Day()) {
		age--
	}
	return age
}
