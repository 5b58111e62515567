package version

import "runtime/debug"

// Release builds set these with
// -ldflags "-X git.home.luguber.info/inful/refsite/internal/version.Version=v0.3.0".
var (
	Version   = "unknown"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String renders the line printed by --version. Binaries built with go install carry no
// ldflags; their module version and VCS revision are read from the embedded build info.
func String() string {
	version, commit, built := Version, GitCommit, BuildTime
	if info, ok := debug.ReadBuildInfo(); ok {
		version, commit, built = fromBuildInfo(info, version, commit, built)
	}
	return version + " (commit " + commit + ", built " + built + ")"
}

func fromBuildInfo(info *debug.BuildInfo, version, commit, built string) (string, string, string) {
	if version == "unknown" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "unknown" {
				commit = s.Value
			}
		case "vcs.time":
			if built == "unknown" {
				built = s.Value
			}
		}
	}
	return version, commit, built
}
