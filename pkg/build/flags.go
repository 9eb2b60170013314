// SPDX-License-Identifier: MIT
//
// Package build exposes the name, version and origin stamped into the
// binary with linker flags, for example:
//
//	go build -ldflags "-X spectro/pkg/build.buildVersion=0.3.0 -X spectro/pkg/build.buildCommit=$(git rev-parse --short HEAD)"
//
// Development builds carry no flags and report the defaults.
package build

import (
	"errors"
	"fmt"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var info = Info{
	Name:        "spectro",
	Description: "Render and stream spectrograms of audio files",
	Time:        "unknown",
	Commit:      "unknown",
	Version:     "dev",
}

// Initialize copies the linker-supplied values into the build info. Missing
// values keep their development defaults and are reported together in the
// returned error, which callers may treat as a warning.
func Initialize() error {
	var errs []error
	set := func(dst *string, v, flag string) {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is not set", flag))
			return
		}
		*dst = v
	}
	set(&info.Name, buildName, "buildName")
	set(&info.Time, buildTime, "buildTime")
	set(&info.Commit, buildCommit, "buildCommit")
	set(&info.Version, buildVersion, "buildVersion")
	return errors.Join(errs...)
}

// Get returns the current build information.
func Get() Info { return info }

// String is the one-line version banner.
func (i Info) String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s)", i.Name, i.Version, i.Commit, i.Time)
}
