package hc

import (
	"encoding/json"
	"net/http"
	"time"
)

type status struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Uptime  string `json:"uptime"`
}

// Handler reports the build and how long the process has been serving.
func Handler(version, commit string) http.Handler {
	started := time.Now()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status{
			Version: version,
			Commit:  commit,
			Uptime:  time.Since(started).Truncate(time.Second).String(),
		})
	})
}
