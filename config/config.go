package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/HTTPayer/polkax402/core/types"
	"github.com/HTTPayer/polkax402/crypto"
)

// Genesis describes the state applied on first boot of an empty store: the
// whole initial supply is minted to the owner account, which also acts as the
// facilitator and fee admin.
type Genesis struct {
	Owner         string `toml:"Owner"`
	InitialSupply string `toml:"InitialSupply"`
	FeeBps        uint32 `toml:"FeeBps"`
}

type Config struct {
	RPCAddress string  `toml:"RPCAddress"`
	DataDir    string  `toml:"DataDir"`
	Genesis    Genesis `toml:"genesis"`
}

const defaultConfig = `RPCAddress = ":8645"
DataDir = "./httpusd-data"

[genesis]
Owner = ""
InitialSupply = "1000000000000"
FeeBps = 100
`

// Load loads the configuration from the given path, creating a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := createDefault(path); err != nil {
			return nil, err
		}
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = ":8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./httpusd-data"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the genesis stanza without touching state.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Genesis.Owner) != "" {
		if _, err := c.OwnerAccount(); err != nil {
			return fmt.Errorf("config: genesis owner: %w", err)
		}
	}
	if _, err := c.InitialSupply(); err != nil {
		return err
	}
	if c.Genesis.FeeBps > 10_000 {
		return fmt.Errorf("config: genesis fee rate %d exceeds 10000 bps", c.Genesis.FeeBps)
	}
	return nil
}

// OwnerAccount parses the configured owner, accepting bech32 or hex.
func (c *Config) OwnerAccount() (types.Account, error) {
	return crypto.ParseAccount(c.Genesis.Owner)
}

// InitialSupply parses the configured initial supply as a decimal integer in
// the unsigned 128-bit balance domain.
func (c *Config) InitialSupply() (*big.Int, error) {
	raw := strings.TrimSpace(c.Genesis.InitialSupply)
	if raw == "" {
		return big.NewInt(0), nil
	}
	supply, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("config: invalid initial supply %q", raw)
	}
	if !types.ValidBalance(supply) {
		return nil, fmt.Errorf("config: initial supply %s out of range", raw)
	}
	return supply, nil
}

func createDefault(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("config: write default %s: %w", path, err)
	}
	return nil
}
