package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/avguard/avscan/internal/classifier"
	"github.com/avguard/avscan/internal/config"
	"github.com/avguard/avscan/internal/embedded"
	"github.com/avguard/avscan/internal/logging"
	"github.com/avguard/avscan/internal/orchestrator"
	"github.com/avguard/avscan/internal/output"
	"github.com/avguard/avscan/internal/quarantine"
	"github.com/avguard/avscan/internal/scanner"
)

var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	cfgFile   string

	// exitCode is set by scan commands that found infected files.
	exitCode int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "avscan",
		Short: "File threat scanner with quarantine",
		Long: `avscan classifies files as clean or as a threat family (virus, malware,
trojan, ransomware, keylogger, rootkit) using known hashes, suspicious
patterns and heuristics. Infected files are quarantined or deleted.

Scans exit with status 1 when at least one infected file was found.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.config/avscan/config.yaml)")
	rootCmd.PersistentFlags().String("quarantine-dir", "", "Quarantine directory")
	rootCmd.PersistentFlags().String("action", "", "Remediation for infected files: quarantine, delete")
	rootCmd.PersistentFlags().String("db", "", "Scan record database path")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for automation)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress progress output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Verbose logging")

	viper.BindPFlag("quarantine.dir", rootCmd.PersistentFlags().Lookup("quarantine-dir"))
	viper.BindPFlag("remediation.action", rootCmd.PersistentFlags().Lookup("action"))
	viper.BindPFlag("storage.database", rootCmd.PersistentFlags().Lookup("db"))

	cobra.OnInitialize(func() {
		config.InitConfig(cfgFile)
		cfg := config.Get()
		level := cfg.Log.Level
		if verbose, _ := rootCmd.PersistentFlags().GetBool("verbose"); verbose {
			level = "debug"
		}
		logging.Setup(level, cfg.Log.Format)
	})

	rootCmd.AddCommand(newFileCmd())
	rootCmd.AddCommand(newDirCmd())
	rootCmd.AddCommand(newSystemCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newInfectedCmd())
	rootCmd.AddCommand(newSignaturesCmd())
	rootCmd.AddCommand(newQuarantineCmd())
	rootCmd.AddCommand(newRemoveCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	os.Exit(exitCode)
}

func newFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "file <path>... [flags]",
		Short: "Scan file(s)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runFileScan,
	}
}

func runFileScan(cmd *cobra.Command, args []string) error {
	e, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	var records []scanner.Record
	for _, path := range args {
		records = append(records, e.orch.ScanFile(path))
	}
	return report(cmd, "File Scan Results", records)
}

func newDirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dir <path> [flags]",
		Short: "Scan a directory",
		Long: `Scan the regular files in a directory. Hidden files, thumbnail caches and
desktop metadata are skipped and reported as SKIPPED.`,
		Args: cobra.ExactArgs(1),
		RunE: runDirScan,
	}
	cmd.Flags().BoolP("recursive", "r", false, "Descend into subdirectories")
	return cmd
}

func runDirScan(cmd *cobra.Command, args []string) error {
	e, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	recursive, _ := cmd.Flags().GetBool("recursive")
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records := e.orch.ScanDirectory(ctx, args[0], recursive)
	return report(cmd, "Directory Scan Results", records)
}

func newSystemCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "system",
		Short: "Scan every mounted filesystem",
		Long: `Walk every filesystem root and scan each regular file. Operating system
and pseudo filesystem directories are skipped. Press Ctrl-C to stop; files
scanned so far are still reported.`,
		Args: cobra.NoArgs,
		RunE: runSystemScan,
	}
}

func runSystemScan(cmd *cobra.Command, args []string) error {
	e, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	release := onDone(sigCtx, func() {
		if !isQuiet(cmd) {
			fmt.Fprintln(os.Stderr, "\nStopping system scan...")
		}
		e.orch.StopSystemScan()
	})
	defer release()

	records := e.orch.ScanSystem(cmd.Context())

	if !isJSON(cmd) && !isQuiet(cmd) {
		st := e.orch.Status()
		fmt.Printf("System scan %s after %s (scanned %d, skipped %d)\n",
			st.State, st.FinishedAt.Sub(st.StartedAt).Round(time.Millisecond), st.Scanned, st.Skipped)
	}
	return report(cmd, "System Scan Results", records)
}

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the most recent scan records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _ := cmd.Flags().GetInt("n")
			h, err := openHistory()
			if err != nil {
				return err
			}
			records, err := h.LastN(n)
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return output.PrintJSON(records)
			}
			output.PrintHistory(os.Stdout, records)
			return nil
		},
	}
	cmd.Flags().IntP("n", "n", 5, "Number of records")
	return cmd
}

func newInfectedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "infected",
		Short: "List stored infected records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			category, _ := cmd.Flags().GetString("category")
			var records []scanner.Record
			if category != "" {
				records, err = db.FindByCategory(classifier.Category(category))
			} else {
				records, err = db.FindInfected()
			}
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return output.PrintJSON(records)
			}
			output.PrintTable("Infected Files", records)
			return nil
		},
	}
	cmd.Flags().String("category", "", "Filter by category (VIRUS, TROJAN, ...)")
	return cmd
}

func newSignaturesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signatures",
		Short: "Manage known-bad hashes",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <hash>...",
		Short: "Add known-bad content hashes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			for _, h := range args {
				added, err := db.AddSignature(h, "cli")
				if err != nil {
					return err
				}
				if !isQuiet(cmd) {
					if added {
						fmt.Printf("Added: %s\n", h)
					} else {
						fmt.Printf("Already known: %s\n", h)
					}
				}
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "info",
		Short: "Show signature counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			sigs, err := loadSignatures(db)
			if err != nil {
				return err
			}
			info := struct {
				SeedVersion string `json:"seed_version"`
				SeedHashes  int    `json:"seed_hashes"`
				KnownHashes int    `json:"known_hashes"`
				Patterns    int    `json:"patterns"`
			}{
				SeedVersion: embedded.Version(),
				SeedHashes:  len(embedded.Signatures()),
				KnownHashes: sigs.HashCount(),
				Patterns:    len(sigs.Patterns()),
			}
			if isJSON(cmd) {
				return output.PrintValue(info)
			}
			fmt.Printf("Seed version:  %s\n", info.SeedVersion)
			fmt.Printf("Seed hashes:   %d\n", info.SeedHashes)
			fmt.Printf("Known hashes:  %d\n", info.KnownHashes)
			fmt.Printf("Patterns:      %d\n", info.Patterns)
			return nil
		},
	})
	return cmd
}

func newQuarantineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quarantine",
		Short: "Inspect and restore quarantined files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List quarantined files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := quarantine.NewJail(config.Get().GetQuarantineDir()).List()
			if err != nil {
				return err
			}
			if isJSON(cmd) {
				return output.PrintValue(entries)
			}
			output.PrintQuarantine(os.Stdout, entries)
			return nil
		},
	})

	restore := &cobra.Command{
		Use:   "restore <name>",
		Short: "Move a quarantined file back out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, _ := cmd.Flags().GetString("to")
			dest, err := quarantine.NewJail(config.Get().GetQuarantineDir()).Restore(args[0], to)
			if err != nil {
				return err
			}
			fmt.Printf("Restored: %s\n", dest)
			return nil
		},
	}
	restore.Flags().String("to", ".", "Destination directory")
	cmd.AddCommand(restore)
	return cmd
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <path>",
		Short: "Delete a file outright",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := quarantine.Delete(args[0]); err != nil {
				return err
			}
			if !isQuiet(cmd) {
				fmt.Printf("Deleted: %s\n", args[0])
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("avscan version %s\n", Version)
			fmt.Printf("Build time: %s\n", BuildTime)
			fmt.Printf("Signature seed: %s (%d hashes)\n", embedded.Version(), len(embedded.Signatures()))
		},
	}
}

func report(cmd *cobra.Command, title string, records []scanner.Record) error {
	if isJSON(cmd) {
		if err := output.PrintJSON(records); err != nil {
			return err
		}
	} else {
		output.PrintTable(title, records)
	}

	if scanner.Summarize(records).Infected > 0 {
		exitCode = 1
	}
	return nil
}

func isJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func isQuiet(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("quiet")
	return v || isJSON(cmd)
}

// progressPrinter writes scan progress to stderr.
func progressPrinter(cmd *cobra.Command) func(orchestrator.Progress) {
	if isQuiet(cmd) {
		return nil
	}
	return func(p orchestrator.Progress) {
		switch {
		case p.Total > 0 && (p.Processed%10 == 0 || p.Processed == p.Total):
			fmt.Fprintf(os.Stderr, "Scanned %d/%d files (%d infected)\n", p.Processed, p.Total, p.Infected)
		case p.Total == 0 && p.Processed%100 == 0:
			fmt.Fprintf(os.Stderr, "Scanned %d files (%d infected), now in %s\n", p.Processed, p.Infected, p.Root)
		}
	}
}
