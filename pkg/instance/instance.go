package instance

import (
	"fmt"
	"os"

	"github.com/gestion-ambientes/ambientes-backend/pkg/env"
)

// GetID identifies this process when it holds a worker lease. It prefers
// AMBIENTES_INSTANCE_ID, then host name and pid.
func GetID() string {
	if id := env.Get("AMBIENTES_INSTANCE_ID", ""); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}
