// Package version reports build information for c64view
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
)

// Set at build time via -ldflags "-X .../internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Modules whose versions are worth reporting alongside our own
var reportedDeps = []string{
	"github.com/tetratelabs/wazero",
	"github.com/hajimehoshi/ebiten/v2",
	"github.com/gdamore/tcell/v2",
	"github.com/yuin/gopher-lua",
}

// Info describes the running binary
type Info struct {
	Version   string
	Commit    string
	Modified  bool
	BuildTime string
	GoVersion string
	Platform  string
	Deps      map[string]string // module path -> version, for reportedDeps found in the build
}

// Read collects build information from the ldflags variables, falling back
// to the VCS stamps the go tool embeds.
func Read() Info {
	info := Info{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Deps:      make(map[string]string),
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	for _, dep := range bi.Deps {
		for _, want := range reportedDeps {
			if dep.Path == want {
				info.Deps[dep.Path] = dep.Version
			}
		}
	}
	return info
}

// String formats the version as a single line
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(i.Version)
	if c := shortCommit(i.Commit); c != "" {
		fmt.Fprintf(&b, " (%s", c)
		if i.Modified {
			b.WriteString("+dirty")
		}
		b.WriteString(")")
	}
	return b.String()
}

// GetVersion returns the short version string shown in titles and the overlay
func GetVersion() string {
	info := Read()
	if info.Version == "dev" {
		if c := shortCommit(info.Commit); c != "" {
			return "dev-" + c
		}
	}
	return info.Version
}

// PrintBuildInfo writes the full build report to w
func PrintBuildInfo(w io.Writer) {
	info := Read()
	fmt.Fprintf(w, "c64view %s\n", info)
	if info.BuildTime != "" {
		fmt.Fprintf(w, "  built:    %s\n", info.BuildTime)
	}
	fmt.Fprintf(w, "  go:       %s %s\n", info.GoVersion, info.Platform)
	for _, dep := range reportedDeps {
		if v, ok := info.Deps[dep]; ok {
			fmt.Fprintf(w, "  %s %s\n", dep, v)
		}
	}
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
