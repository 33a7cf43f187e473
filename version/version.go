// Package version defines pgan version.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with "-ldflags -X"; otherwise filled from the build info.
var (
	// GitCommit is the git commit on build.
	GitCommit = ""
	// ReleaseVersion is the release version.
	ReleaseVersion = ""
	// BuildTime is the commit or build timestamp.
	BuildTime = ""
)

func init() {
	fillFromBuildInfo(debug.ReadBuildInfo())
}

func fillFromBuildInfo(bi *debug.BuildInfo, ok bool) {
	if ReleaseVersion == "" {
		ReleaseVersion = "devel"
		if ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			ReleaseVersion = bi.Main.Version
		}
	}
	if !ok {
		return
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if GitCommit == "" {
				GitCommit = s.Value
				if len(GitCommit) > 12 {
					GitCommit = GitCommit[:12]
				}
			}
		case "vcs.time":
			if BuildTime == "" {
				BuildTime = s.Value
			}
		}
	}
}

// Info is the version of the running binary.
type Info struct {
	GitCommit      string `json:"git_commit"`
	ReleaseVersion string `json:"release_version"`
	BuildTime      string `json:"build_time"`
	GoVersion      string `json:"go_version"`
	Platform       string `json:"platform"`
}

// Get returns the version of the running binary.
func Get() Info {
	return Info{
		GitCommit:      GitCommit,
		ReleaseVersion: ReleaseVersion,
		BuildTime:      BuildTime,
		GoVersion:      runtime.Version(),
		Platform:       runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Version returns the version string, e.g. "v1.2.0 (abc1234)".
func Version() string {
	if GitCommit == "" {
		return ReleaseVersion
	}
	return fmt.Sprintf("%s (%s)", ReleaseVersion, GitCommit)
}
