package logger

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// componentLevels holds per-component level overrides applied by
// WithComponent.
var componentLevels struct {
	mu     sync.RWMutex
	levels map[string]zerolog.Level
}

// SetComponentLevels replaces the level overrides, e.g.
// {"sse": "debug", "capture": "warn"}. Loggers created afterwards by
// WithComponent or Get use them; existing loggers keep their level.
func SetComponentLevels(levels map[string]string) error {
	parsed := make(map[string]zerolog.Level, len(levels))
	for name, lv := range levels {
		level, err := zerolog.ParseLevel(lv)
		if err != nil || lv == "" {
			return fmt.Errorf("logging.levels.%s: invalid level %q", name, lv)
		}
		parsed[name] = level
	}
	componentLevels.mu.Lock()
	componentLevels.levels = parsed
	componentLevels.mu.Unlock()
	return nil
}

func componentLevel(name string) (zerolog.Level, bool) {
	componentLevels.mu.RLock()
	defer componentLevels.mu.RUnlock()
	lv, ok := componentLevels.levels[name]
	return lv, ok
}

// Get returns the global logger tagged with the component name.
func Get(name string) *Logger {
	return GetGlobalLogger().WithComponent(name)
}
