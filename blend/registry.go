package blend

import (
	"fmt"
	"sort"
	"sync"
)

// registry holds registered blend-mode contracts.
var (
	registryMu sync.RWMutex
	contracts  = make(map[string]*Contract)
)

// Register adds a contract to the registry, replacing any previous contract
// with the same mode name. The contract is validated first, so a variant
// missing a backend is caught here, before any shader assembly occurs.
func Register(c *Contract) error {
	if err := c.Validate(); err != nil {
		return err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	contracts[c.Mode] = c
	return nil
}

// mustRegister registers a built-in contract and panics on a malformed one.
// Only used from init().
func mustRegister(c *Contract) {
	if err := Register(c); err != nil {
		panic(fmt.Sprintf("blend: built-in mode: %v", err))
	}
}

// Unregister removes a mode from the registry. Useful for testing.
func Unregister(mode string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(contracts, mode)
}

// Get returns the contract registered under mode.
func Get(mode string) (*Contract, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := contracts[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	return c, nil
}

// IsRegistered checks whether a mode is registered.
func IsRegistered(mode string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := contracts[mode]
	return ok
}

// Modes returns the registered mode names, sorted.
func Modes() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(contracts))
	for name := range contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
