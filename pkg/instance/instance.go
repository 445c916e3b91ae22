package instance

import "os"

const EnvWorkerID = "AUCTIONHOUSE_WORKER_ID"

// ID names this process in logs. Workers scaled horizontally should set
// AUCTIONHOUSE_WORKER_ID; otherwise the hostname is used.
func ID() string {
	if id := os.Getenv(EnvWorkerID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
