package state

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Genesis represents the genesis file.
type Genesis struct {
	Date     time.Time         `json:"date"`
	ChainID  uint16            `json:"chain_id"` // The chain id represents an unique id for this running instance.
	Name     string            `json:"name"`
	Balances map[string]uint64 `json:"balances"`
}

// LoadGenesis opens and consumes the genesis file.
func LoadGenesis(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("reading genesis file: %w", err)
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis file: %w", err)
	}

	return genesis, nil
}
