// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package empstats_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/featurebasedb/empstats"
	"github.com/featurebasedb/empstats/dataset"
	"github.com/featurebasedb/empstats/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }
func f64p(f float64) *float64 { return &f }
func intp(i int) *int { return &i }
func deref(s *string) string { return *s }
func derefF(f *float64) float64 { return *f }

// employee returns a record with every field present.
func employee(first, last string, salary, yoe float64, age int, gender, industry string) dataset.Record {
	return dataset.Record{
		FirstName:         strp(first),
		LastName:          strp(last),
		Salary:            f64p(salary),
		YearsOfExperience: f64p(yoe),
		Gender:            strp(gender),
		Industry:          strp(industry),
		Age:               intp(age),
	}
}

func mustNewAPI(t *testing.T, records []dataset.Record) *empstats.API {
	t.Helper()
	api, err := empstats.NewAPI(empstats.OptAPILoader(dataset.NewStaticLoader(dataset.New(records))))
	require.NoError(t, err)
	return api
}

// numbered returns n complete records named Emp0..Emp(n-1).
func numbered(n int) []dataset.Record {
	recs := make([]dataset.Record, n)
	for i := range recs {
		recs[i] = employee(fmt.Sprintf("Emp%d", i), "Doe", float64(1000*i), float64(i%7), 30+i%10, "F", "Tech")
	}
	return recs
}

func TestNewAPI(t *testing.T) {
	_, err := empstats.NewAPI()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

func TestAPI_Summary(t *testing.T) {
	recs := []dataset.Record{
		employee("Ann", "Lee", 10, 1, 30, "F", "Tech"),
		{FirstName: strp("Bob")},
	}
	api := mustNewAPI(t, recs)

	resp, err := api.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.RecordCount)

	keys := make([]string, len(resp.MissingValues))
	for i, c := range resp.MissingValues {
		keys[i] = c.Key
	}
	assert.Equal(t, dataset.Fields, keys)

	n, ok := resp.MissingValues.Get(dataset.FieldFirstName)
	assert.True(t, ok)
	assert.Equal(t, 0, n)
	n, _ = resp.MissingValues.Get(dataset.FieldSalary)
	assert.Equal(t, 1, n)
	// The first record has no date of birth either.
	n, _ = resp.MissingValues.Get(dataset.FieldDateOfBirth)
	assert.Equal(t, 2, n)
}

func TestAPI_Employees(t *testing.T) {
	api := mustNewAPI(t, numbered(25))
	ctx := context.Background()

	t.Run("FirstPage", func(t *testing.T) {
		resp, err := api.Employees(ctx, 0, 10)
		require.NoError(t, err)
		assert.Len(t, resp.Data, 10)
		assert.Equal(t, 25, resp.Pagination.TotalRecords)
		assert.Equal(t, 1, resp.Pagination.CurrentPage)
		assert.Equal(t, 3, resp.Pagination.TotalPages)
		assert.Nil(t, resp.Pagination.PrevPage)
		require.NotNil(t, resp.Pagination.NextPage)
		assert.Equal(t, 2, *resp.Pagination.NextPage)
	})

	t.Run("LastPage", func(t *testing.T) {
		resp, err := api.Employees(ctx, 20, 10)
		require.NoError(t, err)
		assert.Len(t, resp.Data, 5)
		assert.Equal(t, 3, resp.Pagination.CurrentPage)
		assert.Nil(t, resp.Pagination.NextPage)
		require.NotNil(t, resp.Pagination.PrevPage)
		assert.Equal(t, 2, *resp.Pagination.PrevPage)
		assert.Equal(t, "Emp20", deref(resp.Data[0].FirstName))
	})

	t.Run("OutOfRange", func(t *testing.T) {
		_, err := api.Employees(ctx, 30, 10)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNotFound))
		assert.Equal(t, "Page out of range", err.Error())

		_, err = api.Employees(ctx, 25, 5)
		assert.True(t, errors.Is(err, errors.ErrNotFound))
	})

	t.Run("InvalidArguments", func(t *testing.T) {
		_, err := api.Employees(ctx, -1, 10)
		assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
		_, err = api.Employees(ctx, 0, 0)
		assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
	})

	t.Run("Slices", func(t *testing.T) {
		const total = 25
		for limit := 1; limit <= 30; limit++ {
			for offset := 0; offset < total; offset++ {
				resp, err := api.Employees(ctx, offset, limit)
				require.NoError(t, err)

				want := limit
				if total-offset < want {
					want = total - offset
				}
				require.Len(t, resp.Data, want, "offset=%d limit=%d", offset, limit)
				for i, rec := range resp.Data {
					assert.Equal(t, fmt.Sprintf("Emp%d", offset+i), deref(rec.FirstName))
				}

				p := resp.Pagination
				assert.LessOrEqual(t, p.CurrentPage*limit-limit, offset)
				assert.Less(t, offset, p.CurrentPage*limit)
				assert.Equal(t, (total+limit-1)/limit, p.TotalPages)
				assert.Equal(t, p.CurrentPage == p.TotalPages, p.NextPage == nil)
				assert.Equal(t, p.CurrentPage == 1, p.PrevPage == nil)
			}
		}
	})
}

func TestAPI_Industries(t *testing.T) {
	recs := []dataset.Record{
		employee("A", "A", 1, 1, 30, "F", "Tech"),
		employee("B", "B", 1, 1, 30, "F", "Retail"),
		{FirstName: strp("C")},
		employee("D", "D", 1, 1, 30, "F", "Tech"),
		employee("E", "E", 1, 1, 30, "F", "Health"),
	}
	resp, err := mustNewAPI(t, recs).Industries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Tech", "Retail", "Health"}, resp.Industries)

	empty, err := mustNewAPI(t, []dataset.Record{{FirstName: strp("X")}}).Industries(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, empty.Industries)
	assert.Empty(t, empty.Industries)
}

func TestAPI_Person(t *testing.T) {
	recs := []dataset.Record{
		employee("John", "Smith", 100, 5, 40, "M", "Tech"),
		employee("Jane", "Smith", 200, 6, 41, "F", "Retail"),
		employee("JOHN", "smith", 300, 7, 42, "M", "Health"),
		{FirstName: strp("John")},
	}
	api := mustNewAPI(t, recs)
	ctx := context.Background()

	got, err := api.Person(ctx, "john", "SMITH")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 100.0, derefF(got[0].Salary))
	assert.Equal(t, 300.0, derefF(got[1].Salary))
	assert.Equal(t, 7.0, derefF(got[1].YearsOfExperience))
	assert.Equal(t, "Health", deref(got[1].Industry))

	got, err = api.Person(ctx, "Nobody", "Here")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAPI_SalaryStats(t *testing.T) {
	recs := []dataset.Record{
		employee("A", "A", 50000, 1, 30, "F", "Tech"),
		employee("B", "B", 60000, 2, 30, "F", "Tech"),
		employee("C", "C", 70000, 3, 30, "F", "Retail"),
		employee("D", "D", 80000, 4, 30, "F", "Retail"),
		{FirstName: strp("E"), Industry: strp("Tech")},
		{FirstName: strp("F"), Salary: f64p(90000), Industry: strp("Health")},
	}
	api := mustNewAPI(t, recs)
	ctx := context.Background()

	t.Run("All", func(t *testing.T) {
		resp, err := api.SalaryStats(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, 5, resp.Count)
		assert.Equal(t, 70000.0, derefF(resp.Mean))
		assert.Equal(t, 50000.0, derefF(resp.Min))
		assert.Equal(t, 60000.0, derefF(resp.P25))
		assert.Equal(t, 70000.0, derefF(resp.P50))
		assert.Equal(t, 80000.0, derefF(resp.P75))
		assert.Equal(t, 90000.0, derefF(resp.Max))
	})

	t.Run("Industry", func(t *testing.T) {
		resp, err := api.SalaryStats(ctx, "Tech")
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Count)
		assert.Equal(t, 55000.0, derefF(resp.Mean))
		assert.InDelta(t, 7071.0678, derefF(resp.Std), 1e-3)
	})

	t.Run("SingleValue", func(t *testing.T) {
		resp, err := api.SalaryStats(ctx, "Health")
		require.NoError(t, err)
		assert.Equal(t, 1, resp.Count)
		assert.Nil(t, resp.Std)
		assert.Equal(t, 90000.0, derefF(resp.P25))
	})

	t.Run("CaseSensitive", func(t *testing.T) {
		resp, err := api.SalaryStats(ctx, "tech")
		require.NoError(t, err)
		assert.Equal(t, &empstats.StatsResponse{Count: 0}, resp)
	})
}

func TestAPI_ExperienceStats(t *testing.T) {
	recs := []dataset.Record{
		employee("A", "A", 1, 10, 30, "F", "Tech"),
		employee("B", "B", 1, 20, 30, "F", "Tech"),
		employee("C", "C", 1, 30, 30, "F", "Tech"),
		employee("D", "D", 1, 40, 30, "F", "Retail"),
	}
	resp, err := mustNewAPI(t, recs).ExperienceStats(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Count)
	assert.Equal(t, 25.0, derefF(resp.Mean))
	assert.InDelta(t, 12.9099, derefF(resp.Std), 1e-4)
	assert.Equal(t, 17.5, derefF(resp.P25))
	assert.Equal(t, 25.0, derefF(resp.P50))
	assert.Equal(t, 32.5, derefF(resp.P75))
	assert.LessOrEqual(t, *resp.Min, *resp.P25)
	assert.LessOrEqual(t, *resp.P75, *resp.Max)
}

func TestAPI_IndustryDistribution(t *testing.T) {
	var recs []dataset.Record
	for i := 0; i < 5; i++ {
		recs = append(recs, employee("T", "T", 1, 1, 30, "F", "Tech"))
	}
	recs = append(recs, employee("H", "H", 1, 1, 30, "F", "Health"))
	for i := 0; i < 5; i++ {
		recs = append(recs, employee("R", "R", 1, 1, 30, "F", "Retail"))
	}
	recs = append(recs, dataset.Record{FirstName: strp("X")})
	api := mustNewAPI(t, recs)
	ctx := context.Background()

	got, err := api.IndustryDistribution(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, empstats.Counts{{Key: "Tech", Count: 5}, {Key: "Retail", Count: 5}}, got)

	got, err = api.IndustryDistribution(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, empstats.Counts{{Key: "Tech", Count: 5}, {Key: "Retail", Count: 5}, {Key: "Health", Count: 1}}, got)

	_, err = api.IndustryDistribution(ctx, 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

func TestAPI_GenderDistribution(t *testing.T) {
	recs := []dataset.Record{
		employee("A", "A", 1, 1, 30, "Male", "Tech"),
		employee("B", "B", 1, 1, 30, "Female", "Tech"),
		{FirstName: strp("C")},
		employee("D", "D", 1, 1, 30, "Female", "Tech"),
		{FirstName: strp("E")},
		{FirstName: strp("F")},
	}
	got, err := mustNewAPI(t, recs).GenderDistribution(context.Background())
	require.NoError(t, err)
	assert.Equal(t, empstats.Counts{
		{Key: empstats.GenderUnspecified, Count: 3},
		{Key: "Female", Count: 2},
		{Key: "Male", Count: 1},
	}, got)
	assert.Equal(t, len(recs), got.Total())

	// A recorded "unspecified" gender shares the key of missing genders.
	recs = append(recs, employee("G", "G", 1, 1, 30, empstats.GenderUnspecified, "Tech"))
	got, err = mustNewAPI(t, recs).GenderDistribution(context.Background())
	require.NoError(t, err)
	n, ok := got.Get(empstats.GenderUnspecified)
	assert.True(t, ok)
	assert.Equal(t, 4, n)
	assert.Equal(t, len(recs), got.Total())
}

func TestAPI_AgeDistribution(t *testing.T) {
	recs := []dataset.Record{
		employee("A", "A", 1, 1, 20, "F", "Tech"),
		employee("B", "B", 1, 1, 40, "F", "Tech"),
		{FirstName: strp("C")},
	}
	resp, err := mustNewAPI(t, recs).AgeDistribution(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 30.0, derefF(resp.Mean))
	assert.Equal(t, 20.0, derefF(resp.Min))
	assert.Equal(t, 40.0, derefF(resp.Max))
}

func TestAPI_TopEarners(t *testing.T) {
	recs := []dataset.Record{
		{FirstName: strp("NoPay"), Industry: strp("Tech")},
		employee("Low", "A", 10, 9, 30, "F", "Tech"),
		employee("High", "A", 30, 1, 30, "F", "Retail"),
		employee("Mid1", "A", 20, 5, 30, "F", "Tech"),
		employee("Mid2", "A", 20, 5, 30, "F", "Tech"),
	}
	api := mustNewAPI(t, recs)
	ctx := context.Background()

	got, err := api.TopEarners(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "High", deref(got[0].FirstName))
	assert.Equal(t, "Mid1", deref(got[1].FirstName))
	assert.Equal(t, "Mid2", deref(got[2].FirstName))
	for _, p := range got {
		assert.Nil(t, p.YearsOfExperience)
		assert.NotNil(t, p.Industry)
	}

	got, err = api.TopEarners(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, len(recs))
	assert.Equal(t, "NoPay", deref(got[4].FirstName))
	assert.Nil(t, got[4].Salary)
	for i := 1; i < 4; i++ {
		assert.GreaterOrEqual(t, *got[i-1].Salary, *got[i].Salary)
	}

	_, err = api.TopEarners(ctx, 0)
	assert.True(t, errors.Is(err, errors.ErrInvalidArgument))
}

func TestAPI_TopExperienced(t *testing.T) {
	recs := []dataset.Record{
		employee("A", "A", 10, 3, 30, "F", "Tech"),
		employee("B", "B", 10, 12, 30, "F", "Tech"),
		employee("C", "C", 10, 7, 30, "F", "Tech"),
	}
	got, err := mustNewAPI(t, recs).TopExperienced(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", deref(got[0].FirstName))
	assert.Equal(t, "C", deref(got[1].FirstName))
	assert.Nil(t, got[0].Salary)
	assert.Equal(t, 12.0, derefF(got[0].YearsOfExperience))
}

func TestAPI_Correlations(t *testing.T) {
	ctx := context.Background()

	t.Run("Rounded", func(t *testing.T) {
		recs := []dataset.Record{
			employee("A", "A", 1, 1, 20, "F", "Tech"),
			employee("B", "B", 3, 2, 30, "F", "Tech"),
			employee("C", "C", 2, 3, 40, "F", "Tech"),
			employee("D", "D", 5, 4, 50, "F", "Tech"),
			{FirstName: strp("E"), Salary: f64p(1000)},
		}
		resp, err := mustNewAPI(t, recs).Correlations(ctx)
		require.NoError(t, err)
		require.NotNil(t, resp.SalaryVsExperience)
		assert.Equal(t, 0.8315, *resp.SalaryVsExperience)
		require.NotNil(t, resp.ExperienceVsAge)
		assert.Equal(t, 1.0, *resp.ExperienceVsAge)
	})

	t.Run("ZeroVariance", func(t *testing.T) {
		recs := []dataset.Record{
			employee("A", "A", 100, 1, 30, "F", "Tech"),
			employee("B", "B", 100, 2, 40, "F", "Tech"),
			employee("C", "C", 100, 3, 50, "F", "Tech"),
		}
		resp, err := mustNewAPI(t, recs).Correlations(ctx)
		require.NoError(t, err)
		assert.Nil(t, resp.SalaryVsExperience)
		require.NotNil(t, resp.ExperienceVsAge)
		assert.Equal(t, 1.0, *resp.ExperienceVsAge)
	})

	t.Run("TooFewPairs", func(t *testing.T) {
		recs := []dataset.Record{
			employee("A", "A", 100, 1, 30, "F", "Tech"),
			{FirstName: strp("B"), Salary: f64p(200)},
		}
		resp, err := mustNewAPI(t, recs).Correlations(ctx)
		require.NoError(t, err)
		assert.Nil(t, resp.SalaryVsExperience)
		assert.Nil(t, resp.ExperienceVsAge)
	})
}

func TestAPI_LoadFailure(t *testing.T) {
	loader := dataset.NewLoader(t.TempDir() + "/missing.json")
	api, err := empstats.NewAPI(empstats.OptAPILoader(loader))
	require.NoError(t, err)
	assert.False(t, api.Ready())

	_, err = api.Summary(context.Background())
	require.Error(t, err)
	assert.False(t, api.Ready())
}
