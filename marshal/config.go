// config.go: marshal.toml project configuration for a host process.
package marshal

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config configures a Codec built for a host process: how strict decoding
// should be and how large the bytecode-verifier cache should grow.
type Config struct {
	Verifier struct {
		// Strict selects whether the host installs a bytecode verifier on
		// its Codec (cmd/msgmarshal installs a cached one when it is true).
		// This package only loads the setting and does not act on it.
		Strict    bool `toml:"strict"`
		CacheSize int  `toml:"cache-size"`
	} `toml:"verifier"`

	Diagnostics struct {
		Level string `toml:"level"`
	} `toml:"diagnostics"`
}

// LoadConfig parses a marshal.toml file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if c.Verifier.CacheSize <= 0 {
		c.Verifier.CacheSize = 256
	}
	return &c, nil
}
