// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package empstats

import (
	"runtime"
	"time"
)

// Build information, set with -ldflags at release time.
var Version string
var Commit string
var BuildTime string
var GoVersion string = runtime.Version()

// VersionString returns Version, or a development placeholder when the
// binary was built without one.
func VersionString() string {
	if Version == "" {
		return "v0.0.0-dev"
	}
	return Version
}

func VersionInfo() string {
	suffix := " " + VersionString()
	buildTime := BuildTime
	if buildTime != "" {
		// Normalize the build time into a friendly format in the user's time zone.
		if t, err := time.Parse("2006-01-02T15:04:05+0000", BuildTime); err == nil {
			buildTime = t.Local().Format("Jan _2 2006 3:04PM")
		}
	}
	switch {
	case Commit != "" && buildTime != "":
		suffix += " (" + buildTime + ", " + Commit + ")"
	case Commit != "":
		suffix += " (" + Commit + ")"
	case buildTime != "":
		suffix += " (" + buildTime + ")"
	}
	return "empstats" + suffix + " " + GoVersion
}
