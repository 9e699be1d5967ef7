package chaincfg

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// schema constrains chain registry config files. Unified with the user's
// config before decoding, so a typo'd field or an out-of-range decimals
// value fails at load time with a CUE position, not at reconcile time.
const schema = `
#Chain: {
	id:      string & !=""
	name:    string & !=""
	decimals: int & >=0 & <=36
	symbol:  string & !=""
	settles_to?: string & !=""
}

chains: [...#Chain]
`

// configFile mirrors the CUE config shape for decoding.
type configFile struct {
	Chains []Chain `json:"chains"`
}

// LoadFile reads a CUE chain registry config from disk and builds a
// validated Registry.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("chain config: %w", err)
	}
	return Compile(string(data))
}

// Compile parses CUE source into a validated Registry.
// The source must define a `chains` list conforming to the #Chain schema.
func Compile(source string) (*Registry, error) {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileString(schema)
	if err := schemaVal.Err(); err != nil {
		return nil, fmt.Errorf("chain config: internal schema: %w", err)
	}

	cfgVal := ctx.CompileString(source)
	if err := cfgVal.Err(); err != nil {
		return nil, fmt.Errorf("chain config: parse: %w", err)
	}

	unified := schemaVal.Unify(cfgVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("chain config: validate: %w", err)
	}

	chainsVal := unified.LookupPath(cue.ParsePath("chains"))
	if !chainsVal.Exists() {
		return nil, fmt.Errorf("chain config: missing chains list")
	}

	var cfg configFile
	if err := unified.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("chain config: decode: %w", err)
	}
	if len(cfg.Chains) == 0 {
		return nil, fmt.Errorf("chain config: chains list is empty")
	}

	return NewRegistry(cfg.Chains)
}
