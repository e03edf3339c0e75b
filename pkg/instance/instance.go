package instance

import "os"

// GetID names the running storefront process in logs. NEXUSSHOP_INSTANCE_ID
// wins, then DYNO, then the hostname.
func GetID() string {
	for _, key := range []string{"NEXUSSHOP_INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
