package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/lexandro/envstamp/discovery"
	"github.com/lexandro/envstamp/envfile"
	"github.com/lexandro/envstamp/ignore"
	"github.com/lexandro/envstamp/index"
	"github.com/lexandro/envstamp/register"
	"github.com/lexandro/envstamp/server"
	"github.com/lexandro/envstamp/tools"
	"github.com/lexandro/envstamp/watcher"
	"github.com/lmittmann/tint"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// syncInterval is how often MCP mode re-verifies the catalog against disk.
const syncInterval = 5 * time.Minute

// isTerminal reports whether fd is a terminal. Replaced in tests.
var isTerminal = term.IsTerminal

// options holds the parsed command line.
type options struct {
	rootDir          string
	verbose          bool
	dryRun           bool
	exact            bool
	excludes         []string
	useGitIgnore     bool
	local            bool
	maxFileSizeBytes int64
	watch            bool
	mcp              bool
	logLevel         string
	logFile          string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes envstamp with the given arguments and returns the exit code.
func run(args []string, stdout, stderr io.Writer) (exitCode int) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "envstamp: unexpected error: %v\n", r)
			exitCode = 1
		}
	}()

	if len(args) > 0 && args[0] == "register" {
		serverName := register.DeriveServerName(os.Args[0])
		if err := register.Run(serverName, args[1:], stdout); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	opts, done, err := parseFlags(args, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if done {
		return 0
	}

	logger, closeLog := setupLogger(opts, stderr)
	defer closeLog()

	info, err := os.Stat(opts.rootDir)
	if err != nil {
		logger.Error("target folder does not exist", "folder", opts.rootDir, "error", err)
		return 1
	}
	if !info.IsDir() {
		logger.Error("target is not a directory", "folder", opts.rootDir)
		return 1
	}

	if err := ignore.ValidatePatterns(opts.excludes); err != nil {
		logger.Error("invalid exclude pattern", "error", err)
		return 1
	}

	ignoreMatcher := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:          opts.rootDir,
		ExcludePatterns:  opts.excludes,
		UseGitIgnore:     opts.useGitIgnore,
		MaxFileSizeBytes: opts.maxFileSizeBytes,
	})

	mode := discovery.MarkerPrefix
	if opts.exact {
		mode = discovery.MarkerExact
	}
	finder := &discovery.Finder{Filter: ignoreMatcher, Mode: mode, Logger: logger}

	s := &stamper{
		rootDir:  opts.rootDir,
		finder:   finder,
		rewriter: envfile.NewRewriter(!opts.local),
		logger:   logger,
		ownFiles: ownFilePaths(opts.logFile),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.mcp {
		if err := serveMCP(ctx, s, ignoreMatcher, mode, logger); err != nil {
			logger.Error("MCP server error", "error", err)
			return 1
		}
		return 0
	}

	if opts.verbose {
		s.progress = stdout
	}

	report, err := s.run(opts.dryRun, nil)
	if err != nil {
		logger.Error("stamping failed", "folder", opts.rootDir, "error", err)
		return 1
	}
	fmt.Fprint(stdout, tools.FormatUpdateReport(report))

	if !opts.watch {
		return 0
	}

	fileWatcher, err := watcher.New(watcher.Options{
		RootDir: opts.rootDir,
		Ignore:  ignoreMatcher,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to start file watcher", "error", err)
		return 1
	}
	defer fileWatcher.Close()
	go fileWatcher.Run(ctx)

	logger.Info("watching for changes", "root", opts.rootDir)
	watchAndStamp(ctx, fileWatcher.Events(), s, ignoreMatcher, opts.dryRun, stdout)
	return 0
}

// parseFlags parses the command line. done is true when the invocation was
// fully handled (help or version) and the program should exit successfully.
func parseFlags(args []string, stdout, stderr io.Writer) (opts options, done bool, err error) {
	fs := pflag.NewFlagSet("envstamp", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stdout, fs) }

	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "Print per-file progress and enable debug logging")
	fs.BoolVarP(&opts.dryRun, "dry-run", "n", false, "Report the changes without writing any file")
	fs.BoolVar(&opts.exact, "exact", false, "Only process files named exactly .env")
	fs.StringArrayVar(&opts.excludes, "exclude", nil, "Extra exclude pattern, doublestar syntax (repeatable)")
	fs.BoolVar(&opts.useGitIgnore, "gitignore", false, "Also skip directories ignored by the root .gitignore")
	fs.BoolVar(&opts.local, "local", false, "Stamp timestamps in local time instead of UTC")
	fs.Int64Var(&opts.maxFileSizeBytes, "max-file-size", 1024*1024, "Skip env files larger than this many bytes")
	fs.BoolVarP(&opts.watch, "watch", "w", false, "Keep running and re-stamp when the project changes")
	fs.BoolVar(&opts.mcp, "mcp", false, "Serve MCP tools over stdio")
	fs.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.StringVar(&opts.logFile, "log-file", "", "Log file path (default: stderr)")
	showVersion := fs.BoolP("version", "V", false, "Print version information")
	showHelp := fs.BoolP("help", "h", false, "Show this help message")

	if err := fs.Parse(args); err != nil {
		return opts, false, err
	}

	if *showHelp {
		fs.Usage()
		return opts, true, nil
	}
	if *showVersion {
		fmt.Fprintf(stdout, "envstamp version %s\n", version)
		return opts, true, nil
	}

	if opts.verbose && !fs.Changed("log-level") {
		opts.logLevel = "debug"
	}
	if opts.watch && opts.mcp {
		return opts, false, errors.New("--watch and --mcp cannot be combined")
	}

	switch fs.NArg() {
	case 0:
		opts.rootDir = "."
	case 1:
		opts.rootDir = fs.Arg(0)
	default:
		return opts, false, fmt.Errorf("expected at most one folder, got %d", fs.NArg())
	}
	opts.rootDir, err = discovery.ResolveRoot(opts.rootDir)
	if err != nil {
		return opts, false, fmt.Errorf("resolving folder: %w", err)
	}
	return opts, false, nil
}

// ownFilePaths returns the spellings under which watcher events may report
// the log file: its absolute path and, when different, its resolved path.
func ownFilePaths(logFile string) map[string]bool {
	if logFile == "" {
		return nil
	}
	absPath, err := filepath.Abs(logFile)
	if err != nil {
		return nil
	}
	paths := map[string]bool{absPath: true}
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		paths[resolved] = true
	}
	return paths
}

func printUsage(out io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(out, "Usage: envstamp [folder] [options]\n\n")
	fmt.Fprintf(out, "Refreshes *_MODIFIED dates and increments *_BUILD / BUILD_* counters\n")
	fmt.Fprintf(out, "in every .env file below folder (default: current directory).\n\n")
	fmt.Fprintf(out, "Options:\n")
	fmt.Fprint(out, fs.FlagUsages())
	fmt.Fprintf(out, "\nExamples:\n")
	fmt.Fprintf(out, "  envstamp                     # stamp the current directory\n")
	fmt.Fprintf(out, "  envstamp ./app -n            # show what would change\n")
	fmt.Fprintf(out, "  envstamp --exclude 'legacy/**' --exact\n")
	fmt.Fprintf(out, "  envstamp register project .  # add the MCP server to .mcp.json\n")
}

// setupLogger creates the slog.Logger for the run. Logs never go to stdout,
// which carries the report or the MCP stdio stream.
func setupLogger(opts options, stderr io.Writer) (*slog.Logger, func() error) {
	var logLevel slog.Level
	switch strings.ToLower(opts.logLevel) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err == nil {
			handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: logLevel})
			return slog.New(handler), f.Close
		}
		fmt.Fprintf(stderr, "Warning: cannot open log file %s: %v, falling back to stderr\n", opts.logFile, err)
	}

	noColor := true
	if f, ok := stderr.(*os.File); ok {
		noColor = !isTerminal(int(f.Fd()))
	}
	handler := tint.NewHandler(stderr, &tint.Options{
		Level:      logLevel,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	})
	return slog.New(handler), func() error { return nil }
}

// serveMCP builds the catalog, keeps it current from the watcher and a
// periodic sync, and serves the MCP tools on stdio until ctx is done.
func serveMCP(
	ctx context.Context,
	s *stamper,
	ignoreMatcher *ignore.Matcher,
	mode discovery.MarkerMode,
	logger *slog.Logger,
) error {
	startTime := time.Now()

	keyIndex, err := index.NewKeyIndex()
	if err != nil {
		return fmt.Errorf("creating key index: %w", err)
	}
	defer keyIndex.Close()

	catalog := &envCatalog{
		rootDir:  s.rootDir,
		finder:   s.finder,
		catalog:  index.NewCatalog(),
		keyIndex: keyIndex,
		logger:   logger,
	}
	s.afterWrite = catalog.refresh

	fileCount, keyCount, err := catalog.rebuild()
	if err != nil {
		return fmt.Errorf("building catalog: %w", err)
	}
	logger.Info("initial catalog complete",
		"files", fileCount,
		"keys", keyCount,
		"duration", time.Since(startTime),
	)

	fileWatcher, err := watcher.New(watcher.Options{
		RootDir: s.rootDir,
		Ignore:  ignoreMatcher,
		Logger:  logger,
	})
	if err != nil {
		logger.Warn("failed to start file watcher, continuing without live updates", "error", err)
	} else {
		defer fileWatcher.Close()
		go fileWatcher.Run(ctx)
		go catalog.handleEvents(ctx, fileWatcher.Events(), ignoreMatcher)
	}
	go catalog.runPeriodicSync(ctx, syncInterval)

	handlers := server.Handlers{
		Update: &tools.UpdateHandler{
			Logger: logger,
			DoUpdate: func(ctx context.Context, dryRun bool, pattern string) (tools.UpdateReport, error) {
				include, err := patternFilter(s.rootDir, pattern)
				if err != nil {
					return tools.UpdateReport{}, err
				}
				return s.run(dryRun, include)
			},
		},
		Files:  &tools.FilesHandler{Catalog: catalog.catalog, Logger: logger},
		Search: &tools.SearchHandler{KeyIndex: keyIndex, Logger: logger},
		Show:   &tools.ShowHandler{Catalog: catalog.catalog, Logger: logger},
		Status: &tools.StatusHandler{
			Catalog:    catalog.catalog,
			KeyIndex:   keyIndex,
			StartTime:  startTime,
			RootDir:    s.rootDir,
			MarkerMode: mode.String(),
			Logger:     logger,
		},
		Rescan: &tools.RescanHandler{
			Logger: logger,
			DoRescan: func() (int, int, string, error) {
				start := time.Now()
				// Reload ignore rules in case .gitignore changed
				ignoreMatcher.Reload()
				files, keys, err := catalog.rebuild()
				if err != nil {
					return 0, 0, "", err
				}
				return files, keys, time.Since(start).Round(time.Millisecond).String(), nil
			},
		},
	}

	mcpServer := server.Setup(version, handlers)

	logger.Info("MCP server starting on stdio", "root", s.rootDir)
	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
