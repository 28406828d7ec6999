package buildinfo

import (
	"fmt"
	"runtime"
)

var (
	Version    = "v0.1.0"
	CommitHash = "unknown"
)

type Info struct {
	About      string `json:"about,omitempty"`
	Service    string `json:"service,omitempty"`
	Version    string `json:"version,omitempty"`
	CommitHash string `json:"commit_hash,omitempty"`
	GoVersion  string `json:"go_version,omitempty"`
}

func GetBuildInfo() Info {
	return Info{
		About:      "https://github.com/darmiel/idtoken",
		Service:    "idtoken",
		Version:    Version,
		CommitHash: CommitHash,
		GoVersion:  runtime.Version(),
	}
}

// UserAgent is sent with every outbound request (sign-blob, key fetch, user lookup).
func UserAgent() string {
	return fmt.Sprintf("idtoken/%s (commit=%s; %s)", Version, CommitHash, runtime.Version())
}
