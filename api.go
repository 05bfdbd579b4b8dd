// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package empstats

import (
	"context"
	"sort"
	"strings"

	"github.com/featurebasedb/empstats/dataset"
	"github.com/featurebasedb/empstats/errors"
	"github.com/featurebasedb/empstats/logger"
	"github.com/featurebasedb/empstats/stats"
	"github.com/featurebasedb/empstats/tracing"
)

// ErrPageOutOfRange is returned by Employees when the offset is at or past
// the end of the dataset.
var ErrPageOutOfRange = errors.New(errors.ErrNotFound, "Page out of range")

// GenderUnspecified is the gender distribution key for records without a
// gender.
const GenderUnspecified = "unspecified"

// correlationPlaces is the number of decimal places correlations are
// rounded to.
const correlationPlaces = 4

// API provides the top level programmatic interface to the employee
// statistics. It is usually wrapped by a handler which provides an external
// interface (e.g. HTTP).
//
// Every method loads the dataset through the Loader on first use; the only
// errors they return are load failures and argument errors.
type API struct {
	loader *dataset.Loader
	logger logger.Logger
}

// apiOption is a functional option type for empstats.API
type apiOption func(*API) error

// OptAPILoader sets the dataset loader the API queries.
func OptAPILoader(l *dataset.Loader) apiOption {
	return func(a *API) error {
		a.loader = l
		return nil
	}
}

func OptAPILogger(lg logger.Logger) apiOption {
	return func(a *API) error {
		a.logger = lg
		return nil
	}
}

// NewAPI returns a new API instance.
func NewAPI(opts ...apiOption) (*API, error) {
	api := &API{
		logger: logger.NopLogger,
	}

	for _, opt := range opts {
		err := opt(api)
		if err != nil {
			return nil, errors.Wrap(err, "applying option")
		}
	}

	if api.loader == nil {
		return nil, errors.New(errors.ErrInvalidArgument, "API requires a dataset loader")
	}
	return api, nil
}

// Ready reports whether the dataset has been loaded.
func (api *API) Ready() bool {
	return api.loader.Loaded()
}

// Summary returns the record count and the number of missing values per
// field.
func (api *API) Summary(ctx context.Context) (*SummaryResponse, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "API.Summary")
	defer span.Finish()

	ds, err := api.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	missing := make(Counts, 0, len(dataset.Fields))
	for _, field := range dataset.Fields {
		missing = append(missing, Count{Key: field, Count: ds.MissingCount(field)})
	}
	return &SummaryResponse{
		RecordCount:   ds.Len(),
		MissingValues: missing,
	}, nil
}

// Employees returns limit records starting at offset, in dataset order,
// along with pagination metadata.
func (api *API) Employees(ctx context.Context, offset, limit int) (*PaginatedDataResponse, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "API.Employees")
	defer span.Finish()
	span.LogKV("offset", offset, "limit", limit)

	if offset < 0 {
		return nil, errors.Newf(errors.ErrInvalidArgument, "offset must not be negative, got %d", offset)
	}
	if limit < 1 {
		return nil, errors.Newf(errors.ErrInvalidArgument, "limit must be at least 1, got %d", limit)
	}

	ds, err := api.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	total := ds.Len()
	if offset >= total {
		api.logger.Debugf("employees: offset %d past the last of %d records", offset, total)
		return nil, ErrPageOutOfRange
	}
	end := offset + limit
	if end > total {
		end = total
	}

	recs := ds.Records()
	data := make([]PersonRecord, 0, end-offset)
	for i := offset; i < end; i++ {
		data = append(data, newPersonRecord(&recs[i]))
	}

	page := offset/limit + 1
	meta := PaginationMeta{
		TotalRecords: total,
		CurrentPage:  page,
		TotalPages:   (total + limit - 1) / limit,
	}
	if page < meta.TotalPages {
		meta.NextPage = intPtr(page + 1)
	}
	if page > 1 {
		meta.PrevPage = intPtr(page - 1)
	}
	return &PaginatedDataResponse{Data: data, Pagination: meta}, nil
}

// Industries returns the distinct industries in order of first appearance.
func (api *API) Industries(ctx context.Context) (*IndustryListResponse, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "API.Industries")
	defer span.Finish()

	ds, err := api.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	industries := []string{}
	for _, rec := range ds.Records() {
		if rec.Industry == nil {
			continue
		}
		if _, ok := seen[*rec.Industry]; ok {
			continue
		}
		seen[*rec.Industry] = struct{}{}
		industries = append(industries, *rec.Industry)
	}
	return &IndustryListResponse{Industries: industries}, nil
}

// Person returns every record whose first and last names match, ignoring
// case. Records missing either name never match.
func (api *API) Person(ctx context.Context, firstName, lastName string) ([]PersonRecord, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "API.Person")
	defer span.Finish()

	ds, err := api.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	first, last := strings.ToLower(firstName), strings.ToLower(lastName)
	out := []PersonRecord{}
	recs := ds.Records()
	for i := range recs {
		rec := &recs[i]
		if rec.FirstName == nil || rec.LastName == nil {
			continue
		}
		if strings.ToLower(*rec.FirstName) == first && strings.ToLower(*rec.LastName) == last {
			out = append(out, newPersonRecord(rec))
		}
	}
	return out, nil
}

// SalaryStats describes the salaries of records in industry, or of every
// record when industry is empty.
func (api *API) SalaryStats(ctx context.Context, industry string) (*StatsResponse, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "API.SalaryStats")
	defer span.Finish()

	return api.describe(ctx, industry, func(rec *dataset.Record) *float64 { return rec.Salary })
}

// ExperienceStats describes years of experience of records in industry, or
// of every record when industry is empty.
func (api *API) ExperienceStats(ctx context.Context, industry string) (*StatsResponse, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "API.ExperienceStats")
	defer span.Finish()

	return api.describe(ctx, industry, func(rec *dataset.Record) *float64 { return rec.YearsOfExperience })
}

func (api *API) describe(ctx context.Context, industry string, column func(*dataset.Record) *float64) (*StatsResponse, error) {
	ds, err := api.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	var values []float64
	recs := ds.Records()
	for i := range recs {
		rec := &recs[i]
		if industry != "" && (rec.Industry == nil || *rec.Industry != industry) {
			continue
		}
		if v := column(rec); v != nil {
			values = append(values, *v)
		}
	}
	return newStatsResponse(stats.Describe(values)), nil
}

// IndustryDistribution returns the topN industries by record count.
func (api *API) IndustryDistribution(ctx context.Context, topN int) (Counts, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "API.IndustryDistribution")
	defer span.Finish()

	if topN < 1 {
		return nil, errors.Newf(errors.ErrInvalidArgument, "top_n must be at least 1, got %d", topN)
	}

	ds, err := api.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	counts := countBy(ds.Records(), func(rec *dataset.Record) (string, bool) {
		if rec.Industry == nil {
			return "", false
		}
		return *rec.Industry, true
	})
	if len(counts) > topN {
		counts = counts[:topN]
	}
	return counts, nil
}

// GenderDistribution counts records per gender. Records without a gender are
// counted under GenderUnspecified, together with any record whose gender is
// literally that value.
func (api *API) GenderDistribution(ctx context.Context) (Counts, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "API.GenderDistribution")
	defer span.Finish()

	ds, err := api.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	return countBy(ds.Records(), func(rec *dataset.Record) (string, bool) {
		if rec.Gender == nil {
			return GenderUnspecified, true
		}
		return *rec.Gender, true
	}), nil
}

// countBy counts records per key, skipping records for which key reports
// false. The result is sorted by descending count; equal counts keep the
// order in which their keys were first seen.
func countBy(recs []dataset.Record, key func(*dataset.Record) (string, bool)) Counts {
	index := make(map[string]int)
	counts := Counts{}
	for i := range recs {
		k, ok := key(&recs[i])
		if !ok {
			continue
		}
		if j, ok := index[k]; ok {
			counts[j].Count++
			continue
		}
		index[k] = len(counts)
		counts = append(counts, Count{Key: k, Count: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})
	return counts
}

// AgeDistribution describes the ages of all records with a birth date.
func (api *API) AgeDistribution(ctx context.Context) (*StatsResponse, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "API.AgeDistribution")
	defer span.Finish()

	ds, err := api.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	var ages []float64
	for _, rec := range ds.Records() {
		if rec.Age != nil {
			ages = append(ages, float64(*rec.Age))
		}
	}
	return newStatsResponse(stats.Describe(ages)), nil
}

// TopEarners returns the n records with the highest salaries. Only name,
// salary and industry are filled in.
func (api *API) TopEarners(ctx context.Context, n int) ([]PersonRecord, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "API.TopEarners")
	defer span.Finish()

	top, err := api.top(ctx, n, func(rec *dataset.Record) *float64 { return rec.Salary })
	if err != nil {
		return nil, err
	}
	for i := range top {
		top[i].YearsOfExperience = nil
	}
	return top, nil
}

// TopExperienced returns the n records with the most years of experience.
// Only name, years of experience and industry are filled in.
func (api *API) TopExperienced(ctx context.Context, n int) ([]PersonRecord, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "API.TopExperienced")
	defer span.Finish()

	top, err := api.top(ctx, n, func(rec *dataset.Record) *float64 { return rec.YearsOfExperience })
	if err != nil {
		return nil, err
	}
	for i := range top {
		top[i].Salary = nil
	}
	return top, nil
}

// top orders records by column, descending with missing values last, and
// returns the first n. Equal values keep dataset order.
func (api *API) top(ctx context.Context, n int, column func(*dataset.Record) *float64) ([]PersonRecord, error) {
	if n < 1 {
		return nil, errors.Newf(errors.ErrInvalidArgument, "n must be at least 1, got %d", n)
	}

	ds, err := api.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	recs := ds.Records()
	order := make([]int, len(recs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := column(&recs[order[i]]), column(&recs[order[j]])
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})

	if len(order) > n {
		order = order[:n]
	}
	out := make([]PersonRecord, 0, len(order))
	for _, i := range order {
		out = append(out, newPersonRecord(&recs[i]))
	}
	return out, nil
}

// Correlations returns the Pearson correlation of salary against years of
// experience and of years of experience against age, each over the records
// where both values are present.
func (api *API) Correlations(ctx context.Context) (*CorrelationResponse, error) {
	span, ctx := tracing.StartSpanFromContext(ctx, "API.Correlations")
	defer span.Finish()

	ds, err := api.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	var salary, yoe, yoeAged, age []float64
	for _, rec := range ds.Records() {
		if rec.YearsOfExperience == nil {
			continue
		}
		if rec.Salary != nil {
			salary = append(salary, *rec.Salary)
			yoe = append(yoe, *rec.YearsOfExperience)
		}
		if rec.Age != nil {
			yoeAged = append(yoeAged, *rec.YearsOfExperience)
			age = append(age, float64(*rec.Age))
		}
	}
	return &CorrelationResponse{
		SalaryVsExperience: correlation(salary, yoe),
		ExperienceVsAge:    correlation(yoeAged, age),
	}, nil
}

func correlation(xs, ys []float64) *float64 {
	r, ok := stats.Pearson(xs, ys)
	if !ok {
		return nil
	}
	r = stats.Round(r, correlationPlaces)
	return &r
}
