// Package chaincfg holds the chain registry: the set of chains the engine
// knows about, their native decimals and symbols, and the L2 to L1
// settlement mapping used by the cross-chain reconciliation rules.
//
// The mapping is pure configuration. The engine never computes which chain
// settles where; it only reads what was configured here.
package chaincfg

import (
	"fmt"
	"sort"
)

// Chain describes one configured chain.
type Chain struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Decimals int64  `json:"decimals"`
	Symbol   string `json:"symbol"`

	// SettlesTo is the chain id of the L1 this chain settles onto.
	// Empty for L1 chains.
	SettlesTo string `json:"settles_to,omitempty"`
}

// Registry is an immutable set of configured chains.
type Registry struct {
	chains map[string]Chain
}

// NewRegistry builds a registry from a chain list.
// Returns an error for duplicate ids, empty ids, or a SettlesTo reference
// to a chain that is not in the list.
func NewRegistry(chains []Chain) (*Registry, error) {
	m := make(map[string]Chain, len(chains))
	for _, c := range chains {
		if c.ID == "" {
			return nil, fmt.Errorf("chain registry: empty chain id")
		}
		if _, dup := m[c.ID]; dup {
			return nil, fmt.Errorf("chain registry: duplicate chain id %q", c.ID)
		}
		m[c.ID] = c
	}
	for _, c := range m {
		if c.SettlesTo == "" {
			continue
		}
		if c.SettlesTo == c.ID {
			return nil, fmt.Errorf("chain registry: chain %q settles to itself", c.ID)
		}
		if _, ok := m[c.SettlesTo]; !ok {
			return nil, fmt.Errorf("chain registry: chain %q settles to unknown chain %q", c.ID, c.SettlesTo)
		}
	}
	return &Registry{chains: m}, nil
}

// Chain returns the configured chain for id.
func (r *Registry) Chain(id string) (Chain, bool) {
	c, ok := r.chains[id]
	return c, ok
}

// SettlementChain returns the configured L1 settlement chain id for an L2.
// Returns false for L1 chains and for ids that are not configured at all:
// an unknown chain is treated as non-settlement, never as an error.
func (r *Registry) SettlementChain(id string) (string, bool) {
	c, ok := r.chains[id]
	if !ok || c.SettlesTo == "" {
		return "", false
	}
	return c.SettlesTo, true
}

// IsSettlementPair reports whether one of the two chains is configured to
// settle onto the other, in either direction.
func (r *Registry) IsSettlementPair(a, b string) bool {
	if sa, ok := r.SettlementChain(a); ok && sa == b {
		return true
	}
	if sb, ok := r.SettlementChain(b); ok && sb == a {
		return true
	}
	return false
}

// IDs returns all configured chain ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Default returns the built-in registry: Ethereum mainnet plus the common
// rollups that settle onto it.
func Default() *Registry {
	r, err := NewRegistry([]Chain{
		{ID: "ethereum", Name: "Ethereum", Decimals: 18, Symbol: "ETH"},
		{ID: "base", Name: "Base", Decimals: 18, Symbol: "ETH", SettlesTo: "ethereum"},
		{ID: "arbitrum", Name: "Arbitrum One", Decimals: 18, Symbol: "ETH", SettlesTo: "ethereum"},
		{ID: "optimism", Name: "OP Mainnet", Decimals: 18, Symbol: "ETH", SettlesTo: "ethereum"},
	})
	if err != nil {
		panic(err) // built-in config is validated by tests
	}
	return r
}
