package transcription

import "github.com/kbukum/livecue/util"

// EngineConfig selects and configures an engine.
type EngineConfig struct {
	// Provider must match a registered engine ("deepgram").
	Provider string `yaml:"provider" mapstructure:"provider" validate:"required"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	Model    string `yaml:"model" mapstructure:"model"`
	// Options holds engine-specific settings.
	Options map[string]string `yaml:"options" mapstructure:"options"`
}

// Factory builds an engine from its configuration.
type Factory func(cfg EngineConfig) (Engine, error)

var engines = util.NewRegistry[Factory]("transcription engine")

// RegisterEngine makes an engine available to NewEngine. Engine packages
// call it from init.
func RegisterEngine(name string, f Factory) { engines.Register(name, f) }

// NewEngine builds the engine named by cfg.Provider.
func NewEngine(cfg EngineConfig) (Engine, error) {
	f, err := engines.Lookup(cfg.Provider)
	if err != nil {
		return nil, err
	}
	return f(cfg)
}

// Engines returns the sorted names of all registered engines.
func Engines() []string { return engines.Names() }
