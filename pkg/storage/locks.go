package storage

import "sync"

// pathLocks hands out one mutex per file path and forgets it once nobody holds it.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]*refMutex)}
}

func (p *pathLocks) lock(path string) func() {
	p.mu.Lock()
	m, ok := p.locks[path]
	if !ok {
		m = &refMutex{}
		p.locks[path] = m
	}
	m.refs++
	p.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		p.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(p.locks, path)
		}
		p.mu.Unlock()
	}
}
