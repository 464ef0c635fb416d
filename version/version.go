package version

import (
	"runtime/debug"
	"strings"
	"time"
)

var (
	Tag      string
	Revision string
	BuildAt  string
	Dirty    bool
)

func init() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, setting := range buildInfo.Settings {
		// https://pkg.go.dev/runtime/debug#BuildSetting
		switch setting.Key {
		case "vcs.revision":
			Revision = setting.Value
		case "vcs.time":
			BuildAt = setting.Value
		case "vcs.modified":
			if setting.Value == "true" {
				Dirty = true
			}
		}
	}
}

func String() string {
	// go run, tests
	if Revision == "" {
		return "dev"
	}

	parts := []string{}
	if Tag != "" {
		parts = append(parts, Tag)
	}
	parts = append(parts, Revision[:7])

	if t, err := time.Parse(time.RFC3339, BuildAt); err == nil {
		parts = append(parts, "at "+t.Format("2006-01-02 15:04:05"))
	}
	if Dirty {
		parts = append(parts, "dirty")
	}
	return strings.Join(parts, " ")
}
