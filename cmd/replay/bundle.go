package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"ptbscope/internal/artifact"

	"github.com/spf13/cobra"
)

const (
	flagCache       = "cache"
	flagTransaction = "transaction"
	flagEffects     = "effects"
	flagGas         = "gas"
	flagSignatures  = "signatures"
	flagStore       = "store"
	flagSummary     = "summary"
)

// bundleFiles names the five artifact files inside a replay directory.
type bundleFiles struct {
	cache       string
	transaction string
	effects     string
	gas         string
	signatures  string
}

func addBundleFlags(cmd *cobra.Command, files *bundleFiles) {
	cmd.Flags().StringVar(&files.cache, flagCache, "cache.json", "object cache file name")
	cmd.Flags().StringVar(&files.transaction, flagTransaction, "transaction.json", "transaction data file name")
	cmd.Flags().StringVar(&files.effects, flagEffects, "effects.json", "effects file name")
	cmd.Flags().StringVar(&files.gas, flagGas, "gas.json", "gas report file name")
	cmd.Flags().StringVar(&files.signatures, flagSignatures, "signatures.json", "command signatures file name")
}

// readBundle loads every artifact under dir. A missing file leaves its
// artifact empty so aggregation reports which one is absent.
func readBundle(dir string, files bundleFiles) (artifact.Bundle, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return artifact.Bundle{}, err
	}
	if !info.IsDir() {
		return artifact.Bundle{}, fmt.Errorf("%s is not a directory", dir)
	}

	var b artifact.Bundle
	targets := []struct {
		name string
		dst  *json.RawMessage
	}{
		{files.cache, &b.Cache},
		{files.transaction, &b.Transaction},
		{files.effects, &b.Effects},
		{files.gas, &b.Gas},
		{files.signatures, &b.Signatures},
	}
	for _, target := range targets {
		raw, err := os.ReadFile(filepath.Join(dir, target.name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return artifact.Bundle{}, err
		}
		*target.dst = raw
	}
	return b, nil
}
