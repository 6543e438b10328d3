package audio

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNoHost is returned by [NewHost] when no backend has been registered.
var ErrNoHost = errors.New("audio: no host backend registered")

var (
	hostsMu sync.RWMutex
	hosts   = map[string]func() (Host, error){}
)

// RegisterHost makes a host backend available under name, in the manner of
// database/sql drivers: an OS backend package registers itself from init()
// and the application selects it by name (or blank for the sole backend).
// Registering twice under the same name panics.
func RegisterHost(name string, factory func() (Host, error)) {
	hostsMu.Lock()
	defer hostsMu.Unlock()
	if factory == nil {
		panic("audio: RegisterHost with nil factory")
	}
	if _, dup := hosts[name]; dup {
		panic("audio: RegisterHost called twice for backend " + name)
	}
	hosts[name] = factory
}

// Hosts returns the names of the registered backends, sorted.
func Hosts() []string {
	hostsMu.RLock()
	defer hostsMu.RUnlock()
	names := make([]string, 0, len(hosts))
	for name := range hosts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewHost instantiates the backend registered under name. An empty name
// selects the backend when exactly one is registered.
func NewHost(name string) (Host, error) {
	hostsMu.RLock()
	defer hostsMu.RUnlock()

	if name == "" {
		if len(hosts) != 1 {
			return nil, fmt.Errorf("%w: %d backends available, select one by name", ErrNoHost, len(hosts))
		}
		for _, factory := range hosts {
			return factory()
		}
	}
	factory, ok := hosts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoHost, name)
	}
	return factory()
}
