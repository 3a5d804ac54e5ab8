package bootstrap

import "github.com/kbukum/livecue/config"

// Config is what NewApp needs from a service configuration. Embedding
// config.ServiceConfig provides GetServiceConfig; the service adds its own
// ApplyDefaults and Validate that chain to the embedded ones.
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
