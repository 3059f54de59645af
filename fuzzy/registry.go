package fuzzy

import (
	"sort"
	"strings"

	"picpick/logger"
)

// Hasher defines a fuzzy hashing implementation.
type Hasher interface {
	Name() string
	HashFile(path string) (string, error)
}

var registry = map[string]Hasher{}

// Register adds a fuzzy hasher to the registry.
func Register(hasher Hasher) {
	if hasher == nil {
		return
	}
	registry[strings.ToLower(hasher.Name())] = hasher
}

// Lookup returns a registered hasher by name.
func Lookup(name string) (Hasher, bool) {
	hasher, ok := registry[strings.ToLower(name)]
	return hasher, ok
}

// Available returns the sorted names of registered hashers.
func Available() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HashAll runs every registered hasher over path. Failures are logged at
// debug level and left out of the result.
func HashAll(path string) map[string]string {
	out := make(map[string]string, len(registry))
	for _, name := range Available() {
		digest, err := registry[name].HashFile(path)
		if err != nil {
			logger.Debugf("Fuzzy hash %s failed for %s: %v", name, path, err)
			continue
		}
		out[name] = digest
	}
	return out
}
