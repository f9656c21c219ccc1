package config

import "runtime/debug"

// Set by the release pipeline:
//
//	-ldflags "-X transmit/internal/config.version=$(git describe --tags)"
//
// commit and buildTime are normally left unset and taken from the vcs
// stamp the Go toolchain embeds; injecting them overrides the stamp.
var (
	version   = "dev"
	commit    = ""
	buildTime = ""
)

// NewBuildInfo reports the running binary's version, commit and build time.
func NewBuildInfo() BuildInfo {
	info, _ := debug.ReadBuildInfo()
	return buildInfo(version, commit, buildTime, info)
}

func buildInfo(version, commit, buildTime string, info *debug.BuildInfo) BuildInfo {
	vcs := map[string]string{}
	if info != nil {
		for _, s := range info.Settings {
			vcs[s.Key] = s.Value
		}
	}

	if commit == "" {
		if rev := vcs["vcs.revision"]; rev != "" {
			commit = shortRevision(rev)
			if vcs["vcs.modified"] == "true" {
				commit += "-dirty"
			}
		}
	}
	if buildTime == "" {
		buildTime = vcs["vcs.time"]
	}

	b := BuildInfo{Version: version, Commit: commit, BuildTime: buildTime}
	if b.Commit == "" {
		b.Commit = "none"
	}
	if b.BuildTime == "" {
		b.BuildTime = "unknown"
	}
	return b
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
