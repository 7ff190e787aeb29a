// Package cli implements the fieldbase command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/fieldbase/internal/attachments"
	"github.com/mesh-intelligence/fieldbase/internal/paths"
	"github.com/mesh-intelligence/fieldbase/pkg/fieldbase"
	"github.com/mesh-intelligence/fieldbase/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	logLevel  string
	jsonMode  bool
}

var flags rootFlags

// NewRootCmd creates the top-level "fieldbase" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "fieldbase",
		Short: "Typed fields, responses and views over an embedded store",
		Long: "Fieldbase manages tables whose columns are typed fields, the pages\n" +
			"that fill them in, and the views that project pages for display.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			loadDotenv()
		},
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: .fieldbase)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: .fieldbase-db)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newTableCmd())
	root.AddCommand(newFieldCmd())
	root.AddCommand(newPageCmd())
	root.AddCommand(newResponseCmd())
	root.AddCommand(newViewCmd())
	root.AddCommand(newFolderCmd())
	root.AddCommand(newAttachmentCmd())
	root.AddCommand(newApplyCmd())
	root.AddCommand(newExportSchemaCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newImportCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	os.Exit(run(NewRootCmd(), os.Args[1:], os.Stderr))
}

// run executes root with args and maps the outcome to an exit code.
func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.Execute()
	if err == nil {
		return exitSuccess
	}
	fmt.Fprintln(stderr, "Error:", err)
	return exitCode(err)
}

// exitCode classifies err: caller mistakes exit 1, everything else exits 2.
func exitCode(err error) int {
	var ue *usageError
	switch {
	case errors.As(err, &ue),
		errors.Is(err, types.ErrValidation),
		errors.Is(err, types.ErrNotFound):
		return exitUserError
	default:
		return exitSysError
	}
}

// usageError marks bad command-line input that never reached the engine.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// loadDotenv reads .env then .env.local from the working directory. Missing
// files are ignored and variables already set in the environment win.
func loadDotenv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// withEngine resolves configuration, opens the engine and hands it to fn.
// The engine is closed when fn returns.
func withEngine(cmd *cobra.Command, fn func(ctx context.Context, e *fieldbase.Engine) error) error {
	s, err := resolveConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(s.engine.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if actor := os.Getenv(envActor); actor != "" {
		ctx = types.WithActor(ctx, actor)
	}

	opts := []fieldbase.Option{fieldbase.WithLogger(log.Sugar())}
	if s.attachmentIndex != "" {
		store, err := loadAttachmentIndex(ctx, s.attachmentIndex)
		if err != nil {
			return err
		}
		log.Sugar().Debugw("loaded attachment index", "path", s.attachmentIndex, "attachments", store.Len())
		opts = append(opts, fieldbase.WithAttachmentStore(store))
	}

	e, err := fieldbase.Open(s.engine, opts...)
	if err != nil {
		return fmt.Errorf("open fieldbase: %w", err)
	}
	defer e.Close()
	return fn(ctx, e)
}

// envActor names the user recorded in audit columns of CLI writes.
const envActor = "FIELDBASE_ACTOR"

// settings is the resolved CLI configuration.
type settings struct {
	engine          types.Config
	attachmentIndex string
}

// resolveConfig merges flags, config.yaml and the environment into the
// engine config and the attachment index path.
func resolveConfig() (settings, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return settings{}, fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return settings{}, err
	}
	dataDir, err := paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, fmt.Errorf("resolve data dir: %w", err)
	}
	level := flags.logLevel
	if level == "" {
		level = v.GetString(cfgKeyLogLevel)
	}
	cfg := types.Config{
		Backend:  v.GetString(cfgKeyBackend),
		DataDir:  dataDir,
		LogLevel: level,
	}
	if err := cfg.Validate(); err != nil {
		return settings{}, usagef("config: %s", err)
	}
	index := v.GetString(cfgKeyAttachmentIndex)
	if index != "" && !filepath.IsAbs(index) {
		index = filepath.Join(configDir, index)
	}
	return settings{engine: cfg, attachmentIndex: index}, nil
}

// loadAttachmentIndex reads the YAML attachment index at path into a
// memory store.
func loadAttachmentIndex(ctx context.Context, path string) (*attachments.MemoryStore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open attachment index: %w", err)
	}
	defer f.Close()

	store := attachments.NewMemoryStore()
	if _, err := store.LoadIndex(ctx, f); err != nil {
		return nil, fmt.Errorf("attachment index %s: %w", path, err)
	}
	return store, nil
}

// newLogger builds a JSON logger on stderr at the given level.
func newLogger(level string) (*zap.Logger, error) {
	if level == "" {
		level = defaultLogLevel
	}
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, usagef("log level: %s", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}
