package pipeline

import "sync"

// pathLocks serializes document mutations per path. Two concurrent
// commands whose line ranges overlap in one document would otherwise
// corrupt each other via interleaved splices.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*sync.Mutex)}
}

func (p *pathLocks) forPath(path string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.locks[path]; ok {
		return l
	}
	l := &sync.Mutex{}
	p.locks[path] = l
	return l
}
