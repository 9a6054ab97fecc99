package agent

import "sync"

// Lazy defers agent construction to first real use and memoizes the result,
// so schema-only and test-only flows never require the generation credential.
// First initialization is guarded by sync.Once; afterward the agent is shared
// read-only across calls.
type Lazy struct {
	build func() (*Agent, error)

	once  sync.Once
	agent *Agent
	err   error
}

func NewLazy(build func() (*Agent, error)) *Lazy {
	return &Lazy{build: build}
}

// Get returns the memoized agent, constructing it on first call. A failed
// construction is memoized too: the configuration failure repeats until the
// process is restarted with a fixed environment.
func (l *Lazy) Get() (*Agent, error) {
	l.once.Do(func() {
		l.agent, l.err = l.build()
	})
	return l.agent, l.err
}
