// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package dataset

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/featurebasedb/empstats/errors"
	"github.com/featurebasedb/empstats/logger"
	"golang.org/x/sync/singleflight"
)

// Loader reads the dataset at Path on first use and returns the same
// *Dataset to every later caller. Concurrent first callers share a single
// read. A failed read is not remembered; the next call tries again.
type Loader struct {
	path string
	now  func() time.Time

	logger   logger.Logger
	observer func(ds *Dataset, dur time.Duration)

	group singleflight.Group
	ds    atomic.Pointer[Dataset]
	reads atomic.Int64
}

// LoaderOption is a functional option type for Loader.
type LoaderOption func(l *Loader)

// OptLoaderLogger sets the logger used to report loads.
func OptLoaderLogger(lg logger.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = lg
	}
}

// OptLoaderNow sets the clock ages are computed against.
func OptLoaderNow(now func() time.Time) LoaderOption {
	return func(l *Loader) {
		l.now = now
	}
}

// OptLoaderObserver registers fn to be called once after a successful load.
func OptLoaderObserver(fn func(ds *Dataset, dur time.Duration)) LoaderOption {
	return func(l *Loader) {
		l.observer = fn
	}
}

// NewLoader returns a Loader for the source file at path.
func NewLoader(path string, opts ...LoaderOption) *Loader {
	l := &Loader{
		path:   path,
		now:    time.Now,
		logger: logger.NopLogger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewStaticLoader returns a Loader which is already holding ds.
func NewStaticLoader(ds *Dataset) *Loader {
	l := NewLoader(ds.path)
	l.ds.Store(ds)
	return l
}

// Path returns the source file path.
func (l *Loader) Path() string {
	return l.path
}

// Loaded reports whether the dataset has been loaded.
func (l *Loader) Loaded() bool {
	return l.ds.Load() != nil
}

// Reads returns how many times the source file has been read.
func (l *Loader) Reads() int64 {
	return l.reads.Load()
}

// Load returns the dataset, reading it from the source file if this is the
// first successful call.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	if ds := l.ds.Load(); ds != nil {
		return ds, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ch := l.group.DoChan("load", func() (interface{}, error) {
		// Another flight may have finished between the fast path and here.
		if ds := l.ds.Load(); ds != nil {
			return ds, nil
		}
		ds, err := l.read()
		if err != nil {
			return nil, err
		}
		l.ds.Store(ds)
		return ds, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Dataset), nil
	}
}

func (l *Loader) read() (*Dataset, error) {
	start := time.Now()
	l.reads.Add(1)

	raws, err := readSource(l.path)
	if err != nil {
		l.logger.Errorf("loading dataset from %s: %v", l.path, err)
		return nil, errors.Wrapf(err, "loading dataset from %s", l.path)
	}
	if err := checkFields(raws); err != nil {
		l.logger.Errorf("loading dataset from %s: %v", l.path, err)
		return nil, errors.Wrapf(err, "loading dataset from %s", l.path)
	}

	now := l.now()
	records := make([]Record, len(raws))
	for i, raw := range raws {
		records[i] = coerceRecord(raw, now)
	}
	ds := &Dataset{
		records:  records,
		path:     l.path,
		loadedAt: now,
	}

	dur := time.Since(start)
	l.logger.Infof("loaded %d records from %s in %v", ds.Len(), l.path, dur)
	for _, field := range Fields {
		if n := ds.MissingCount(field); n > 0 {
			l.logger.Debugf("%s: %d missing values", field, n)
		}
	}
	if l.observer != nil {
		l.observer(ds, dur)
	}
	return ds, nil
}

// checkFields returns an error unless every source field appears in at least
// one record. Fields absent from individual records are just missing.
func checkFields(raws []rawRecord) error {
	for _, field := range SourceFields {
		found := false
		for _, raw := range raws {
			if _, ok := raw[field]; ok {
				found = true
				break
			}
		}
		if !found {
			return errors.Newf(errors.ErrSourceInvalid, "no record has the %q field", field)
		}
	}
	return nil
}
