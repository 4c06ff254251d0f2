package toolbackend

import (
	"fmt"
	"sync"

	"github.com/artificer-dev/artificer/internal/domain"
	"github.com/artificer-dev/artificer/internal/domain/tool"
)

// Factory is a constructor function that creates a Backend for a language.
type Factory func(opts Options) (Backend, error)

var (
	mu        sync.RWMutex
	factories = make(map[tool.Language]Factory)
)

// Register makes a backend factory available for a language.
// It is called from the adapter packages during wiring.
func Register(lang tool.Language, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[lang]; exists {
		panic(fmt.Sprintf("toolbackend: duplicate registration for %q", lang))
	}
	factories[lang] = factory
}

// New creates a Backend for the given language using the registered factory.
// An unregistered language is a configuration error, not a runtime crash.
func New(lang tool.Language, opts Options) (Backend, error) {
	mu.RLock()
	factory, ok := factories[lang]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("toolbackend: %q: %w", lang, domain.ErrUnsupportedLanguage)
	}
	return factory(opts)
}

// Available returns the languages with a registered backend.
func Available() []tool.Language {
	mu.RLock()
	defer mu.RUnlock()

	langs := make([]tool.Language, 0, len(factories))
	for lang := range factories {
		langs = append(langs, lang)
	}
	return langs
}
