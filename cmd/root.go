package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sheetdiff-project/sheetdiff/internal/rosterwatch"
	"github.com/sheetdiff-project/sheetdiff/internal/service"
	"github.com/sheetdiff-project/sheetdiff/internal/sheet"
	"github.com/sheetdiff-project/sheetdiff/internal/store"
	bboltStore "github.com/sheetdiff-project/sheetdiff/internal/store/bbolt"
	"github.com/sheetdiff-project/sheetdiff/internal/ui"
	"github.com/sheetdiff-project/sheetdiff/pkg/structdiff"
)

var (
	// persistent flags
	cfgFile          string
	enableDebugMode  bool
	truncateDebugLog bool

	// local flags
	vaultFile        string
	rosterDir        string
	noDurableSync    bool
	disableCache     bool
	snapshotInterval uint64
	filterExpr       string
	headlessMode     bool
	watchRoster      bool
)

var rootCmd = &cobra.Command{
	Use:   "sheetdiff [FLAGS] [SHEETS...]",
	Short: "Character Sheet History Viewer",
	Long: `Sheetdiff is an interactive or headless tool that imports character sheets
from a roster directory and records every change as either a snapshot or patch.
You can pin any sheet or revision as a baseline and compare it against any other
in a Terminal UI, or collect revisions head-less for further analysis`,
	Args:              cobra.ArbitraryArgs,
	ValidArgsFunction: sheetCompletion,
	PreRunE:           validateArgsAndFlags,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args)
	},
}

var setupLog = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
	Timestamp().
	Caller().
	Logger()

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	cobra.OnInitialize(initConfig)

	// global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.sheetdiff.yaml)")
	rootCmd.PersistentFlags().BoolVar(&enableDebugMode, "debug", false,
		"Enable debug mode, which will print additional information to the debug.log file")
	rootCmd.PersistentFlags().BoolVar(&truncateDebugLog, "truncate-debug", false,
		"Truncate the debug.log file on startup, if it exists")

	// sheetdiff command flags
	rootCmd.Flags().StringVarP(&vaultFile, "vault", "o", "",
		"Path to the *.vault output file (default: temporary file)")
	rootCmd.Flags().StringVarP(&rosterDir, "roster", "r", "",
		"Roster directory containing *.json/*.yaml sheet files")
	rootCmd.Flags().StringVarP(&filterExpr, "filter", "f", "All()",
		"Filter expression to select which sheets to store (default: all sheets)")
	rootCmd.Flags().BoolVarP(&headlessMode, "headless", "H", false,
		"Run in headless mode, without TUI. Useful for collecting revisions only.")
	rootCmd.Flags().BoolVarP(&watchRoster, "watch", "w", false,
		"Keep watching the roster directory and commit sheets as their files change")
	rootCmd.Flags().BoolVar(&noDurableSync, "no-durable-sync", false,
		"Skip fsync on every commit to improve throughput (unsafe on crashes)")
	rootCmd.Flags().BoolVar(&disableCache, "disable-cache", false,
		"Disable in-memory cache layer for the revision vault")
	rootCmd.Flags().Uint64VarP(&snapshotInterval, "snapshot-interval", "s", 8,
		"Create a full snapshot after this many patches (default 8)")

	// allow some flags to be set via environment variables / config file
	mustBind("roster",
		viper.BindPFlag("roster", rootCmd.Flags().Lookup("roster")))
	mustBind("debug",
		viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")))
	mustBind("truncate-debug",
		viper.BindPFlag("truncate-debug", rootCmd.PersistentFlags().Lookup("truncate-debug")))
	mustBind("no-durable-sync",
		viper.BindPFlag("no-durable-sync", rootCmd.Flags().Lookup("no-durable-sync")))
	mustBind("disable-cache",
		viper.BindPFlag("disable-cache", rootCmd.Flags().Lookup("disable-cache")))
	mustBind("snapshot-interval",
		viper.BindPFlag("snapshot-interval", rootCmd.Flags().Lookup("snapshot-interval")))
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".sheetdiff")
	}

	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		setupLog.Info().Msgf("Using config file: %s", viper.ConfigFileUsed())
	}
}

// run is the main entry point for the command execution.
func run(ctx context.Context, args []string) error {

	if enableDebugMode {
		setupLog.Info().Msg("Debug mode is enabled, setting up debug logger...")

		fileMode := os.O_CREATE | os.O_WRONLY
		if truncateDebugLog {
			fileMode |= os.O_TRUNC
		} else {
			fileMode |= os.O_APPEND
		}
		logFile, logError := os.OpenFile("debug.log", fileMode, 0o644)
		if logError != nil {
			setupLog.Fatal().Err(logError).Msg("Error opening debug log file")
		}
		defer func(logFile *os.File) {
			err := logFile.Close()
			if err != nil {
				setupLog.Error().Err(err).Msg("Error closing debug log file")
			}
		}(logFile)

		log.Logger = zerolog.New(logFile).With().
			Timestamp().
			Caller().
			Logger().
			Level(zerolog.DebugLevel)
	} else {
		// by default, we shouldn't log anything as this would break our TUI.
		log.Logger = zerolog.Nop()
	}

	if vaultFile == "" {
		file, err := os.CreateTemp("", "sheetdiff-*.vault")
		if err != nil {
			setupLog.Fatal().Err(err).Msg("Cannot create temp file")
		}
		defer func() {
			_ = file.Close()
			if removeErr := os.Remove(file.Name()); removeErr != nil {
				setupLog.Err(removeErr).Msg("Cannot remove temp file")
			}
		}()
		vaultFile = file.Name()

		setupLog.Info().Msgf("No vault file specified, using temporary file: %s", vaultFile)
	}

	setupLog.Info().
		Str("expression", filterExpr).
		Msg("Compiling filter expression...")
	prog, err := expr.Compile(filterExpr, expr.Env(sheet.Env{}), expr.AsBool())
	if err != nil {
		setupLog.Fatal().Err(err).Msg("Error compiling filter expression")
	}

	setupLog.Info().
		Str("vault-file", vaultFile).
		Msg("Preparing sheet revision vault...")
	vault, err := bboltStore.New(vaultFile, nil, !noDurableSync)
	if err != nil {
		setupLog.Fatal().Err(err).Msg("Error preparing vault")
	}
	vaultService := service.NewVaultService(vault, snapshotInterval, !disableCache)
	defer func() {
		if closeErr := vaultService.Close(); closeErr != nil {
			setupLog.Error().Err(closeErr).Msg("Error closing vault")
		}
	}()

	// closing this context will stop the roster watcher and the collector
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var watcher *rosterwatch.Watcher
	if rosterDir != "" && watchRoster {
		setupLog.Info().
			Str("roster", rosterDir).
			Msg("Preparing roster watcher...")
		watcher, err = rosterwatch.New(ctx, rosterDir, rosterwatch.WithLogger(log.Logger))
		if err != nil {
			setupLog.Fatal().Err(err).Msg("Error creating roster watcher")
		}
		defer watcher.Stop()
	}

	var wg sync.WaitGroup

	if headlessMode {
		// headless mode: we will not use the UI, but just collect revisions and store them in the vault.
		setupLog.Info().Msg("Running in headless mode, using no-op commit handler")

		wg.Add(1)
		go func() {
			runCollector(ctx, watcher, vaultService, prog, args, &noOpCommitHandler{})
			wg.Done()
		}()

		if watcher == nil {
			setupLog.Info().Msg("Roster imported, nothing left to watch")
			cancel()
		} else {
			// we use [signal.Notify] instead of [signal.NotifyContext] here so we can re-use the ctx for the TUI.
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt)
			<-c

			setupLog.Info().Msg("Received interrupt signal, stopping collector...")
			cancel()
		}
	} else {
		// interactive mode: we will use the UI to display revisions and allow user interaction
		setupLog.Info().Msg("Running in interactive mode, using UI commit handler")

		root := ui.NewRoot(ui.DarkTheme, ui.NewRosterView(vaultService))
		program := tea.NewProgram(root)

		handler := &uiCommitHandler{
			program: program,
		}

		// run collector
		wg.Add(2) // 2 because we will run two goroutines: one for loading history and one for collecting revisions
		go func() {
			// wait until the program is ready to receive commands, so we don't skip any commits
			program.Send(nil)

			// after the program is ready, we can start load historic data
			go func() {
				if historyErr := loadHistoryFromVault(ctx, vaultService, vault, prog, handler); historyErr != nil {
					log.Error().Err(historyErr).Msg("Error loading history from vault")
				}
				wg.Done()
			}()

			// and start collecting revisions
			go func() {
				runCollector(ctx, watcher, vaultService, prog, args, handler)
				wg.Done()
			}()
		}()

		if _, teaErr := program.Run(); teaErr != nil {
			setupLog.Error().Err(teaErr).Msg("Error running TUI program")
		}

		setupLog.Info().Msg("TUI program exited, stopping collector")
		cancel()
	}

	wg.Wait()
	setupLog.Info().Msg("Collector stopped, bye!")

	return nil
}

// commitHandler is the handler used by the collector to handle freshly
// committed revisions.
type commitHandler interface {
	HandleCommit(s *sheet.Sheet, revisionID store.RevisionID, at int64) error
}

var _ commitHandler = (*noOpCommitHandler)(nil)

// noOpCommitHandler is a no-op implementation of the commitHandler.
// It just logs the revision and does nothing else.
type noOpCommitHandler struct{}

func (n noOpCommitHandler) HandleCommit(s *sheet.Sheet, revisionID store.RevisionID, _ int64) error {
	log.Debug().
		Str("revision-id", revisionID.String()).
		Str("uid", s.UID).
		Str("name", s.Name).
		Str("kind", s.Kind).
		Msg("Storing revision...")

	// nothing to do in headless mode, as we are just storing revisions in the collector
	return nil
}

var _ commitHandler = (*uiCommitHandler)(nil)

// uiCommitHandler is an implementation of the commitHandler that sends
// a command to the TUI program to display the revision in the UI.
type uiCommitHandler struct {
	program *tea.Program
}

func (u *uiCommitHandler) HandleCommit(s *sheet.Sheet, revisionID store.RevisionID, at int64) error {
	u.program.Send(ui.NewCommitMsg(
		s.UID,
		s.Kind,
		s.Name,
		revisionID,
		at,
	))
	return nil
}

// runCollector imports the roster once and then, if a watcher is
// configured, keeps committing sheets as their files change.
func runCollector(
	ctx context.Context,
	watcher *rosterwatch.Watcher,
	vaultService *service.VaultService,
	filterExprProgram *vm.Program,
	onlySheets []string,
	handler commitHandler,
) {
	if watcher != nil {
		// seed the initial roster state through the watcher so initial
		// and live imports take the same path
		if err := watcher.Rescan(); err != nil {
			log.Error().Err(err).Msg("Error scanning roster directory")
		}
	} else if rosterDir != "" {
		sheets, err := sheet.LoadDir(rosterDir)
		if err != nil {
			log.Error().Err(err).Msg("Error loading roster directory")
		}
		for _, s := range sheets {
			commitSheet(ctx, vaultService, filterExprProgram, onlySheets, s, handler)
		}
		return
	}
	if watcher == nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events():
			if !ok {
				return
			}
			commitSheet(ctx, vaultService, filterExprProgram, onlySheets, ev.Sheet, handler)
		}
	}
}

// commitSheet runs a single sheet through the filter, skips it when the
// vault already holds an identical latest state, and hands the new
// revision to the handler.
func commitSheet(
	ctx context.Context,
	vaultService *service.VaultService,
	filterExprProgram *vm.Program,
	onlySheets []string,
	s *sheet.Sheet,
	handler commitHandler,
) {
	l := log.With().
		Str("uid", s.UID).
		Str("name", s.Name).
		Str("kind", s.Kind).
		Logger()

	if len(onlySheets) > 0 && !containsFold(onlySheets, s.UID) {
		l.Debug().Msg("Sheet not in requested set, skipping")
		return
	}

	// make sure we want to store this sheet
	pass, err := expr.Run(filterExprProgram, sheet.Env{Sheet: s})
	if err != nil {
		l.Error().Err(err).Msg("Error executing filter expression")
		return
	}
	if !pass.(bool) {
		return
	}

	l.Debug().Msg("Processing sheet...")

	// committing an unchanged sheet would record an empty patch, so
	// compare against the latest state first
	if latestState, restoreErr := vaultService.RestoreLatest(ctx, s.UID); restoreErr == nil {
		set, cmpErr := structdiff.Compare(latestState, s.Data)
		if cmpErr == nil && len(set) == 0 {
			l.Debug().Msg("Sheet unchanged since latest revision, skipping commit")
			return
		}
	}

	revisionID, err := vaultService.Commit(ctx, s)
	if err != nil {
		l.Error().Err(err).Msg("Error committing to vault service")
		return
	}

	if handleErr := handler.HandleCommit(s, revisionID, nowNano()); handleErr != nil {
		l.Error().Err(handleErr).Msg("Error handling revision")
	}
}

// loadHistoryFromVault replays every revision already present in the
// vault through the handler so the UI tree starts populated.
func loadHistoryFromVault(
	ctx context.Context,
	vaultService *service.VaultService,
	vault store.SheetStore,
	filterExprProgram *vm.Program,
	handler commitHandler,
) error {
	uids, err := vault.ListUIDs(ctx)
	if err != nil {
		return err
	}

	for _, uid := range uids {
		latest, err := vault.GetLatestRevision(ctx, uid)
		if err != nil {
			log.Error().Err(err).Msgf("Error loading latest revision for historic sheet %s", uid)
			continue
		}

		var (
			state      structdiff.Record
			name, kind string
			complete   = true
		)
		for rev := store.RevisionID(0); rev <= latest; rev++ {
			var at int64
			if snap, snapErr := vault.GetSnapshot(ctx, uid, rev); snapErr == nil {
				// full snapshot: start anew
				state = sheet.CloneRecord(snap.Data)
				name, kind = snap.Name, snap.Kind
				at = snap.Time.UnixNano()
			} else {
				patch, patchErr := vault.GetPatch(ctx, uid, rev)
				if patchErr != nil {
					log.Error().Err(patchErr).Msgf("Broken revision chain for historic sheet %s at %s", uid, rev)
					complete = false
					break
				}
				// patch: apply on top of last state
				structdiff.Apply(state, patch.Changes)
				at = patch.Time.UnixNano()
			}

			historicSheet := &sheet.Sheet{UID: uid, Name: name, Kind: kind, Data: state}

			// make sure we want to track this sheet
			pass, exprErr := expr.Run(filterExprProgram, sheet.Env{Sheet: historicSheet})
			if exprErr != nil {
				log.Error().Err(exprErr).Msgf("Error executing filter expression for historic sheet %s", uid)
				continue
			}
			if !pass.(bool) {
				continue
			}

			if handleErr := handler.HandleCommit(historicSheet, rev, at); handleErr != nil {
				log.Error().Err(handleErr).Msg("Error handling historic revision")
			}
		}
		if complete {
			vaultService.WarmCache(uid, sheet.CloneRecord(state), latest)
		}
	}
	return nil
}

func validateArgsAndFlags(_ *cobra.Command, _ []string) error {
	rosterDir = viper.GetString("roster")
	if rosterDir == "" && vaultFile == "" {
		return fmt.Errorf("either specify a roster directory via --roster or an existing vault via --vault")
	}
	if watchRoster && rosterDir == "" {
		return fmt.Errorf("--watch requires a roster directory (--roster)")
	}
	return nil
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}

func nowNano() int64 {
	return time.Now().UnixNano()
}

func mustBind(flagName string, err error) {
	if err != nil {
		log.Fatal().Err(err).Msgf("Failed to bind flag %s", flagName)
	}
}
