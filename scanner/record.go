package scanner

import (
	"sort"
	"sync"

	"picpick/metadata"
)

// FileRef is one enumerated file. Index is its position in traversal order.
type FileRef struct {
	Index int
	Path  string
	Name  string
}

// collector stores extraction results keyed by the file they came from, so
// completion order never leaks into the output order.
type collector struct {
	mu      sync.Mutex
	results map[int]metadata.Result
}

func newCollector() *collector {
	return &collector{results: make(map[int]metadata.Result)}
}

func (c *collector) put(ref FileRef, res metadata.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results[ref.Index] = res
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

// ordered returns the collected results in traversal order.
func (c *collector) ordered() []metadata.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	indexes := make([]int, 0, len(c.results))
	for i := range c.results {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	out := make([]metadata.Result, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, c.results[i])
	}
	return out
}

// inFlight tracks the files currently being read.
type inFlight struct {
	mu    sync.Mutex
	paths map[int]string
}

func newInFlight() *inFlight {
	return &inFlight{paths: make(map[int]string)}
}

func (f *inFlight) add(ref FileRef) {
	f.mu.Lock()
	f.paths[ref.Index] = ref.Path
	f.mu.Unlock()
}

func (f *inFlight) done(ref FileRef) {
	f.mu.Lock()
	delete(f.paths, ref.Index)
	f.mu.Unlock()
}

func (f *inFlight) list() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.paths))
	for _, p := range f.paths {
		out = append(out, p)
	}
	return out
}
