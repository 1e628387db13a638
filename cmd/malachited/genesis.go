package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/gcrypto"
)

// genesisDoc is the on-disk JSON genesis document naming the chain ID
// and the genesis validator set (§6's "fixed per-height validator set,
// supplied by the host").
type genesisDoc struct {
	ChainID    string `json:"chain_id"`
	Validators []struct {
		Address     string `json:"address"`
		PublicKey   string `json:"public_key"`
		VotingPower uint64 `json:"voting_power"`
	} `json:"validators"`
}

func writeGenesis(path, chainID string, pub ed25519.PublicKey, addr []byte) error {
	gen := genesisDoc{ChainID: chainID}
	gen.Validators = append(gen.Validators, struct {
		Address     string `json:"address"`
		PublicKey   string `json:"public_key"`
		VotingPower uint64 `json:"voting_power"`
	}{
		Address:     hex.EncodeToString(addr),
		PublicKey:   hex.EncodeToString(pub),
		VotingPower: 100,
	})

	data, err := json.MarshalIndent(gen, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal genesis: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// loadGenesisValidators reads path, falling back to a single-validator
// devnet set built from priv when the file is absent.
func loadGenesisValidators(path string, priv ed25519.PrivateKey) (consensus.ValidatorSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return devValidatorSet(priv), nil
		}
		return consensus.ValidatorSet{}, fmt.Errorf("read genesis: %w", err)
	}

	var gen genesisDoc
	if err := json.Unmarshal(data, &gen); err != nil {
		return consensus.ValidatorSet{}, fmt.Errorf("parse genesis: %w", err)
	}
	if len(gen.Validators) == 0 {
		return devValidatorSet(priv), nil
	}

	vals := make([]consensus.Validator, len(gen.Validators))
	for i, v := range gen.Validators {
		pubBytes, err := hex.DecodeString(v.PublicKey)
		if err != nil {
			return consensus.ValidatorSet{}, fmt.Errorf("decode validator %d public key: %w", i, err)
		}
		addrBytes, err := hex.DecodeString(v.Address)
		if err != nil {
			return consensus.ValidatorSet{}, fmt.Errorf("decode validator %d address: %w", i, err)
		}
		vals[i] = consensus.Validator{
			Address:     consensus.Address(addrBytes),
			PubKey:      gcrypto.Ed25519PubKey(pubBytes),
			VotingPower: v.VotingPower,
		}
	}
	return consensus.NewValidatorSet(vals), nil
}

func devValidatorSet(priv ed25519.PrivateKey) consensus.ValidatorSet {
	signer := gcrypto.NewEd25519Signer(priv)
	addr := consensus.Address(signer.PubKey().Address())
	return consensus.NewValidatorSet([]consensus.Validator{
		{Address: addr, PubKey: signer.PubKey(), VotingPower: 100},
	})
}
