// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package dataset

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// rawRecord is one record as decoded from a source, before coercion. Values
// are nil, string, []byte, bool, json.Number or a Go numeric type depending
// on the source format.
type rawRecord map[string]interface{}

// coerceRecord builds a Record from raw, deriving age relative to now.
func coerceRecord(raw rawRecord, now time.Time) Record {
	rec := Record{
		FirstName:         toString(raw[FieldFirstName]),
		LastName:          toString(raw[FieldLastName]),
		Salary:            toFloat(raw[FieldSalary]),
		YearsOfExperience: toFloat(raw[FieldYearsOfExperience]),
		DateOfBirth:       toDate(raw[FieldDateOfBirth]),
		Gender:            toString(raw[FieldGender]),
		Industry:          toString(raw[FieldIndustry]),
	}
	if rec.DateOfBirth != nil {
		age := Age(*rec.DateOfBirth, now)
		rec.Age = &age
	}
	return rec
}

// toFloat coerces v to a finite number, or nil.
func toFloat(v interface{}) *float64 {
	var f float64
	switch v := v.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		return parseFloat(string(v))
	case string:
		return parseFloat(v)
	case []byte:
		return parseFloat(string(v))
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func parseFloat(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// toString returns v as a string. Scalars are rendered as text; nil and
// composite values are missing.
func toString(v interface{}) *string {
	var s string
	switch v := v.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case json.Number:
		s = string(v)
	case bool:
		s = strconv.FormatBool(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		s = strconv.FormatInt(v, 10)
	case int32:
		s = strconv.FormatInt(int64(v), 10)
	default:
		return nil
	}
	return &s
}

// toDate parses a day/month/year string, or returns nil.
func toDate(v interface{}) *time.Time {
	var s string
	switch v := v.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return nil
	}
	t, err := time.Parse(DateOfBirthLayout, strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &t
}
