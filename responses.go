// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package empstats

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/featurebasedb/empstats/dataset"
	"github.com/featurebasedb/empstats/errors"
	"github.com/featurebasedb/empstats/stats"
)

// SummaryResponse is the result of API.Summary.
type SummaryResponse struct {
	RecordCount   int    `json:"record_count"`
	MissingValues Counts `json:"missing_values"`
}

// StatsResponse is a stats map. Count is always present; the other
// statistics are omitted when they can't be computed (std needs two values,
// the rest need one).
type StatsResponse struct {
	Count int      `json:"count"`
	Mean  *float64 `json:"mean,omitempty"`
	Std   *float64 `json:"std,omitempty"`
	Min   *float64 `json:"min,omitempty"`
	P25   *float64 `json:"25%,omitempty"`
	P50   *float64 `json:"50%,omitempty"`
	P75   *float64 `json:"75%,omitempty"`
	Max   *float64 `json:"max,omitempty"`
}

func newStatsResponse(d stats.Description) *StatsResponse {
	return &StatsResponse{
		Count: d.Count,
		Mean:  nanToNil(d.Mean),
		Std:   nanToNil(d.Std),
		Min:   nanToNil(d.Min),
		P25:   nanToNil(d.P25),
		P50:   nanToNil(d.P50),
		P75:   nanToNil(d.P75),
		Max:   nanToNil(d.Max),
	}
}

// IndustryListResponse is the result of API.Industries.
type IndustryListResponse struct {
	Industries []string `json:"industries"`
}

// PersonRecord is the public shape of one employee. Fields which don't apply
// to a particular response (salary in a top-experienced list, for example)
// are null.
type PersonRecord struct {
	FirstName         *string  `json:"first_name"`
	LastName          *string  `json:"last_name"`
	Salary            *float64 `json:"salary"`
	YearsOfExperience *float64 `json:"years_of_experience"`
	Industry          *string  `json:"industry"`
}

func newPersonRecord(rec *dataset.Record) PersonRecord {
	return PersonRecord{
		FirstName:         rec.FirstName,
		LastName:          rec.LastName,
		Salary:            rec.Salary,
		YearsOfExperience: rec.YearsOfExperience,
		Industry:          rec.Industry,
	}
}

// PaginationMeta describes where a page sits in the dataset. NextPage and
// PrevPage are null on the last and first page respectively.
type PaginationMeta struct {
	TotalRecords int  `json:"total_records"`
	CurrentPage  int  `json:"current_page"`
	TotalPages   int  `json:"total_pages"`
	NextPage     *int `json:"next_page"`
	PrevPage     *int `json:"prev_page"`
}

// PaginatedDataResponse is the result of API.Employees.
type PaginatedDataResponse struct {
	Data       []PersonRecord `json:"data"`
	Pagination PaginationMeta `json:"pagination"`
}

// CorrelationResponse holds Pearson coefficients rounded to four places, or
// null where they are undefined.
type CorrelationResponse struct {
	SalaryVsExperience *float64 `json:"salary_vs_experience"`
	ExperienceVsAge    *float64 `json:"experience_vs_age"`
}

// Count is one entry of a Counts list.
type Count struct {
	Key   string
	Count int
}

// Counts is an ordered key to count mapping. It is encoded as a JSON object
// whose keys keep the slice order.
type Counts []Count

// Get returns the count stored under key.
func (c Counts) Get(key string) (int, bool) {
	for _, e := range c {
		if e.Key == key {
			return e.Count, true
		}
	}
	return 0, false
}

// Total returns the sum of all counts.
func (c Counts) Total() int {
	var n int
	for _, e := range c {
		n += e.Count
	}
	return n
}

// MarshalJSON implements json.Marshaler.
func (c Counts) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(e.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping the key order of the
// encoded object.
func (c *Counts) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.Errorf("counts: expected a JSON object")
	}
	out := Counts{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errors.Errorf("counts: expected a string key, got %v", tok)
		}
		var n int
		if err := dec.Decode(&n); err != nil {
			return errors.Wrapf(err, "counts: decoding %q", key)
		}
		out = append(out, Count{Key: key, Count: n})
	}
	*c = out
	return nil
}

func nanToNil(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func intPtr(v int) *int {
	return &v
}
