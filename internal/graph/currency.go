// Package graph implements the arbitrage market graph: currencies,
// per-exchange currency vertices, the markets (edges) between them, and
// the depth-bounded path enumeration and per-scan order generation that
// the scanner drives.
package graph

import "sync"

// Currency is a process-wide asset identity (e.g. "BTC", "USDT"),
// independent of which exchange quotes it. Vertices reference a Currency
// by code; the registry exists only to intern codes so two vertices for
// the same asset never disagree on spelling.
type Currency struct {
	Code string
}

var (
	registryMu sync.Mutex
	registry   = map[string]*Currency{}
)

// Intern returns the shared Currency for code, creating it on first use.
func Intern(code string) *Currency {
	registryMu.Lock()
	defer registryMu.Unlock()

	if c, ok := registry[code]; ok {
		return c
	}
	c := &Currency{Code: code}
	registry[code] = c
	return c
}
