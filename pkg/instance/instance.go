// Package instance names the running process for lock ownership and logs.
package instance

import (
	"fmt"
	"os"
	"strings"
)

const workerIDEnv = "AGUASOL_WORKER_ID"

// GetID returns AGUASOL_WORKER_ID when set, otherwise <hostname>-<pid> so
// two workers sharing a host never claim the same cron lock owner.
func GetID() string {
	host, err := os.Hostname()
	if err != nil {
		host = ""
	}
	return resolve(os.Getenv(workerIDEnv), host, os.Getpid())
}

func resolve(override, host string, pid int) string {
	if id := strings.TrimSpace(override); id != "" {
		return id
	}
	if host = strings.TrimSpace(host); host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, pid)
}
