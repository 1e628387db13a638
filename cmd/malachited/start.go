package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/circlefin/malachite-sub001/codec/pbcodec"
	"github.com/circlefin/malachite-sub001/consensus"
	"github.com/circlefin/malachite-sub001/gcrypto"
	"github.com/circlefin/malachite-sub001/host"
	"github.com/circlefin/malachite-sub001/metrics"
	"github.com/circlefin/malachite-sub001/wal"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the malachited node",
		RunE:  runStart,
	}

	cmd.Flags().String("home", defaultHome(), "node home directory")
	cmd.Flags().String("log-level", "info", "log level: debug, info, warn, error")

	return cmd
}

func runStart(cmd *cobra.Command, args []string) error {
	homeDir, _ := cmd.Flags().GetString("home")
	logLevelFlag, _ := cmd.Flags().GetString("log-level")

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(logLevelFlag)}))

	cfg, err := loadConfigFile(filepath.Join(homeDir, "config.toml"))
	if err != nil {
		return err
	}

	dataDir := cfg.DataDir
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(homeDir, dataDir)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	_, priv, err := loadNodeKey(filepath.Join(homeDir, "node_key.json"))
	if err != nil {
		return fmt.Errorf("load node key: %w", err)
	}
	signer := gcrypto.NewEd25519Signer(priv)
	self := consensus.Address(signer.PubKey().Address())

	vs, err := loadGenesisValidators(filepath.Join(homeDir, "genesis.json"), priv)
	if err != nil {
		return fmt.Errorf("load genesis: %w", err)
	}

	logger.Info("starting malachited",
		"address", hex.EncodeToString([]byte(self)),
		"chain_id", cfg.ChainID,
		"validators", vs.Len(),
	)

	m := metrics.New("malachite")
	go serveMetrics(logger, cfg.MetricsAddr, m)

	scheme := consensus.DefaultSignatureScheme{}
	c := pbcodec.Codec{}

	entries, err := wal.ReadEntries(dataDir, c)
	if err != nil {
		return fmt.Errorf("read wal: %w", err)
	}

	walFile, err := wal.Open(dataDir, c)
	if err != nil {
		return fmt.Errorf("open wal: %w", err)
	}

	app := newDemoApp(logger, self, cfg.ChainID, vs)
	hostSigner := host.NewLocalSigner(signer, scheme, cfg.ChainID)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resumeHeight := firstHeight(entries)

	if len(entries) > 0 {
		logger.Info("replaying wal", "entries", len(entries), "height", resumeHeight)
		l, err := wal.Apply(ctx, self, cfg.ChainID, scheme, resumeHeight, app, hostSigner, walFile,
			entries, host.WithLogger(logger), host.WithMetrics(m), host.WithTimeouts(cfg.timeoutConfig()))
		if err != nil {
			return fmt.Errorf("replay wal: %w", err)
		}
		app.attach(l)
	} else {
		if err := walFile.StartHeight(resumeHeight); err != nil {
			return fmt.Errorf("start wal height: %w", err)
		}
		l := host.New(self, cfg.ChainID, scheme, app, hostSigner, walFile,
			host.WithLogger(logger), host.WithMetrics(m), host.WithTimeouts(cfg.timeoutConfig()))
		app.attach(l)
		if err := l.StartHeight(ctx, resumeHeight); err != nil {
			return fmt.Errorf("start height %d: %w", resumeHeight, err)
		}
	}

	fmt.Println("malachited started. Press Ctrl+C to stop.")
	<-ctx.Done()
	fmt.Println("\nshutdown signal received...")
	return nil
}

// firstHeight returns the height implied by entries' first
// height-carrying record, or 1 if entries is empty (a fresh node
// always begins at height 1; timeout entries carry no height since
// they only ever apply within the height the WAL is currently scoped
// to).
func firstHeight(entries []host.WALEntry) consensus.Height {
	for _, e := range entries {
		switch e.Kind {
		case host.WALConsensusVote:
			return e.Vote.Message.Height
		case host.WALConsensusProposal:
			return e.Proposal.Message.Height
		case host.WALProposedValue:
			return e.Proposed.Height
		}
	}
	return 1
}

func serveMetrics(log *slog.Logger, addr string, m *metrics.Metrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	log.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Error("metrics server stopped", "err", err)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
