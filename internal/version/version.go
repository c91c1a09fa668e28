package version

import (
	"fmt"
	"strings"
)

// Set at link time: -ldflags "-X casedesk/internal/version.Version=v1.2.0".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = ""
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time,omitempty"`
}

func Current() Info {
	out := Info{
		Version:   strings.TrimSpace(Version),
		Commit:    strings.TrimSpace(Commit),
		BuildTime: strings.TrimSpace(BuildTime),
	}
	if out.Version == "" {
		out.Version = "dev"
	}
	if out.Commit == "" {
		out.Commit = "unknown"
	}
	return out
}

func (i Info) String() string {
	if i.BuildTime == "" {
		return fmt.Sprintf("%s (%s)", i.Version, i.Commit)
	}
	return fmt.Sprintf("%s (%s, built %s)", i.Version, i.Commit, i.BuildTime)
}
