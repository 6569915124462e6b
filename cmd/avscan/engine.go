package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/avguard/avscan/internal/classifier"
	"github.com/avguard/avscan/internal/config"
	"github.com/avguard/avscan/internal/embedded"
	"github.com/avguard/avscan/internal/history"
	"github.com/avguard/avscan/internal/orchestrator"
	"github.com/avguard/avscan/internal/quarantine"
	"github.com/avguard/avscan/internal/scanner"
	"github.com/avguard/avscan/internal/signature"
	"github.com/avguard/avscan/internal/store"
)

// engine wires the scanning stack from configuration.
type engine struct {
	db   *store.Store
	orch *orchestrator.Orchestrator
}

func openEngine(cmd *cobra.Command) (*engine, error) {
	cfg := config.Get()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := openStore()
	if err != nil {
		return nil, err
	}
	hist, err := openHistory()
	if err != nil {
		db.Close()
		return nil, err
	}
	sigs, err := loadSignatures(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	var remediator scanner.Remediator
	switch cfg.GetRemediationAction() {
	case config.ActionDelete:
		remediator = scanner.DeleteInfected()
	default:
		remediator = scanner.QuarantineWith(quarantine.NewJail(cfg.GetQuarantineDir()))
	}

	files := scanner.NewFileScanner(
		classifier.New(sigs, classifier.DefaultOptions()),
		remediator,
		scanner.WithSink(db),
		scanner.WithAuditLog(hist),
	)
	orch := orchestrator.New(files,
		orchestrator.WithSink(db),
		orchestrator.WithBatchSize(cfg.GetBatchSize()),
		orchestrator.WithProgress(progressPrinter(cmd)),
		orchestrator.WithExcludedPaths(ownedPaths(cfg)...),
	)
	return &engine{db: db, orch: orch}, nil
}

func (e *engine) Close() error {
	return e.db.Close()
}

// ownedPaths lists the files and directories the scanner itself writes.
func ownedPaths(cfg *config.Config) []string {
	db := cfg.GetDatabase()
	hist := cfg.GetHistoryFile()
	return []string{
		cfg.GetQuarantineDir(),
		hist, hist + ".tmp",
		db, db + "-journal", db + "-wal", db + "-shm",
	}
}

func openStore() (*store.Store, error) {
	db, err := store.New(config.Get().GetDatabase())
	if err != nil {
		return nil, fmt.Errorf("failed to open scan database: %w", err)
	}
	return db, nil
}

func openHistory() (*history.Log, error) {
	cfg := config.Get()
	h, err := history.Open(cfg.GetHistoryFile(), cfg.GetHistoryMaxEntries())
	if err != nil {
		return nil, fmt.Errorf("failed to open scan history: %w", err)
	}
	return h, nil
}

// loadSignatures seeds a store from the embedded list and every persisted
// update.
func loadSignatures(db *store.Store) (*signature.Store, error) {
	sigs := signature.NewStore(embedded.Signatures()...)
	persisted, err := db.Signatures()
	if err != nil {
		return nil, err
	}
	for _, h := range persisted {
		sigs.AddHash(h)
	}
	return sigs, nil
}
