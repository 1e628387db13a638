package main

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/circlefin/malachite-sub001/gcrypto"
)

// nodeKeyFile is the on-disk JSON representation of a validator's
// ed25519 key pair.
type nodeKeyFile struct {
	PrivateKey []byte `json:"private_key"`
	PublicKey  []byte `json:"public_key"`
}

func newKeysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Key management commands",
	}

	cmd.AddCommand(keysGenerateCmd())
	cmd.AddCommand(keysShowCmd())

	return cmd
}

func keysGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new Ed25519 validator key",
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")

			pub, priv, err := ed25519.GenerateKey(nil)
			if err != nil {
				return fmt.Errorf("generate keypair: %w", err)
			}
			signer := gcrypto.NewEd25519Signer(priv)
			addr := signer.PubKey().Address()

			if output != "" {
				if err := writeNodeKey(output, priv, pub); err != nil {
					return err
				}
				fmt.Printf("Key saved to %s\n", output)
			}

			fmt.Printf("Address:     %s\n", hex.EncodeToString(addr))
			fmt.Printf("Public Key:  %s\n", hex.EncodeToString(pub))
			return nil
		},
	}

	cmd.Flags().String("output", "", "file path to save the key (JSON format)")
	return cmd
}

func keysShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show node key information",
		RunE: func(cmd *cobra.Command, args []string) error {
			homeDir, _ := cmd.Flags().GetString("home")
			priv, pub, err := loadNodeKey(filepath.Join(homeDir, "node_key.json"))
			if err != nil {
				return err
			}
			signer := gcrypto.NewEd25519Signer(priv)
			addr := signer.PubKey().Address()

			fmt.Printf("Address:     %s\n", hex.EncodeToString(addr))
			fmt.Printf("Public Key:  %s\n", hex.EncodeToString(pub))
			return nil
		},
	}

	cmd.Flags().String("home", defaultHome(), "node home directory")
	return cmd
}

func writeNodeKey(path string, priv ed25519.PrivateKey, pub ed25519.PublicKey) error {
	kf := nodeKeyFile{PrivateKey: priv, PublicKey: pub}
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal node key: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write node key: %w", err)
	}
	return nil
}

func loadNodeKey(path string) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read node key: %w", err)
	}
	var kf nodeKeyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, nil, fmt.Errorf("parse node key: %w", err)
	}
	return ed25519.PrivateKey(kf.PrivateKey), ed25519.PublicKey(kf.PublicKey), nil
}
