// Package cli implements the commitkeeper command line: committing to a
// value, keeping its secret, and later revealing or verifying it.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/CommitKeeper/internal/client/history"
	"github.com/atinyakov/CommitKeeper/internal/client/storage"
	"github.com/atinyakov/CommitKeeper/internal/commitment"
	"github.com/atinyakov/CommitKeeper/internal/logger"
	"github.com/atinyakov/CommitKeeper/internal/pepper"
	"github.com/atinyakov/CommitKeeper/internal/service"
)

// Exit codes. Every failure class has its own code so scripts can tell
// them apart.
const (
	ExitOK            = 0
	ExitMismatch      = 1
	ExitUsage         = 2
	ExitEmptyInput    = 3
	ExitEntropy       = 4
	ExitSerialization = 5
	ExitWrite         = 6
	ExitAlreadyExists = 7
	ExitNotFound      = 8
	ExitParse         = 9
	ExitIntegrity     = 10
	ExitRemote        = 11
	ExitFailure       = 12
)

var (
	// Version and BuildDate are reported by the version command.
	Version   string
	BuildDate string
)

var errUsage = errors.New("usage error")

const usageText = `usage: commitkeeper <command> [flags] [args]

commands:
  commit  [-force] <input|-> [destination]   commit to a value and save its secret
  verify  <secret-file> <commitment>          check a secret against a published commitment
  verify  -input v -pepper hex <commitment>   check an opening without a secret file
  reveal  [-url U] <secret-file>              print the opening (and reveal it to a registry)
  list                                        list past commitments
  batch   [-workers N] <file|->               commit to every line of a file
  publish -url U <secret-file>                publish the commitment to a registry
  shell                                       interactive prompt
  version                                     print build information

common flags:
  -dir D          where secrets are saved (default ".", env COMMITKEEPER_DIR)
  -history D      history database directory, empty to disable (env COMMITKEEPER_HISTORY)
  -scheme S       commitment scheme (sha512-lp-v1, blake2b512-lp-v1)
  -pepper-len N   pepper size in bytes (default 32, minimum 16)
  -log-level L    debug, info, warn, error (default warn, env LOG_LEVEL)
  -timeout T      bound on a single commit or registry request (default 10s)

exit codes:
  0 ok, 1 mismatch, 2 usage, 3 empty input, 4 entropy, 5 serialization,
  6 write, 7 already exists, 8 not found, 9 parse, 10 integrity,
  11 registry, 12 other failure
`

// app carries the process environment through the commands.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	log    *zap.Logger
}

// options holds the flags shared by every command.
type options struct {
	dir       string
	history   string
	scheme    string
	pepperLen int
	logLevel  string
	url       string
	timeout   time.Duration
	force     bool
	workers   int
	input     string
	pepperHex string
}

// Run executes the command line args (without the program name) and
// returns the process exit code.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return run(ctx, args, stdin, stdout, stderr, os.Getenv)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, getenv func(string) string) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, getenv: getenv, log: zap.NewNop()}

	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return ExitUsage
	}

	var err error
	code := ExitOK
	switch cmd, rest := args[0], args[1:]; cmd {
	case "commit":
		err = a.cmdCommit(ctx, rest)
	case "verify":
		code, err = a.cmdVerify(ctx, rest)
	case "reveal":
		code, err = a.cmdReveal(ctx, rest)
	case "list":
		err = a.cmdList(ctx, rest)
	case "batch":
		code, err = a.cmdBatch(ctx, rest)
	case "publish":
		err = a.cmdPublish(ctx, rest)
	case "shell":
		err = a.cmdShell(ctx, rest)
	case "version":
		fmt.Fprintf(stdout, "Build version: %s\nBuild date: %s\n", orNA(Version), orNA(BuildDate))
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usageText)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usageText)
		return ExitUsage
	}

	_ = a.log.Sync()
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCode(err)
	}
	return code
}

// exitCode maps an error onto the exit code table. Storage classes are
// checked first: a corrupt file wraps the same argument errors a bad flag does.
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, commitment.ErrEmptyInput):
		return ExitEmptyInput
	case errors.Is(err, pepper.ErrEntropySourceUnavailable):
		return ExitEntropy
	case errors.Is(err, storage.ErrSerialization):
		return ExitSerialization
	case errors.Is(err, storage.ErrWrite):
		return ExitWrite
	case errors.Is(err, storage.ErrAlreadyExists):
		return ExitAlreadyExists
	case errors.Is(err, storage.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, storage.ErrParse):
		return ExitParse
	case errors.Is(err, storage.ErrIntegrityMismatch):
		return ExitIntegrity
	case errors.Is(err, storage.ErrRemote),
		errors.Is(err, storage.ErrAlreadyPublished),
		errors.Is(err, storage.ErrNotPublished):
		return ExitRemote
	case errors.Is(err, errUsage),
		errors.Is(err, flag.ErrHelp),
		errors.Is(err, commitment.ErrUnknownScheme),
		errors.Is(err, commitment.ErrInvalidDigest),
		errors.Is(err, commitment.ErrInvalidPepper),
		errors.Is(err, pepper.ErrInvalidLength):
		return ExitUsage
	default:
		return ExitFailure
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// parse registers the shared flags on a new FlagSet for cmd and parses args.
func (a *app) parse(cmd string, args []string) (*options, []string, error) {
	o := &options{}
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	fs.StringVar(&o.dir, "dir", envOr(a.getenv, "COMMITKEEPER_DIR", "."), "where secrets are saved")
	fs.StringVar(&o.history, "history", envOr(a.getenv, "COMMITKEEPER_HISTORY", defaultHistoryDir()), "history database directory")
	fs.StringVar(&o.scheme, "scheme", "", "commitment scheme")
	fs.IntVar(&o.pepperLen, "pepper-len", pepper.DefaultLength, "pepper size in bytes")
	fs.StringVar(&o.logLevel, "log-level", envOr(a.getenv, "LOG_LEVEL", "warn"), "log level")
	fs.StringVar(&o.url, "url", a.getenv("COMMITKEEPER_URL"), "registry base URL")
	fs.DurationVar(&o.timeout, "timeout", 10*time.Second, "bound on a single commit or registry request")
	fs.BoolVar(&o.force, "force", false, "overwrite an existing secret file")
	fs.IntVar(&o.workers, "workers", 4, "parallel workers for batch")
	fs.StringVar(&o.input, "input", "", "revealed input (verify without a secret file)")
	fs.StringVar(&o.pepperHex, "pepper", "", "revealed pepper in hex (verify without a secret file)")
	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errUsage, err)
	}

	l := logger.New()
	if err := l.InitConsole(o.logLevel, a.stderr); err != nil {
		return nil, nil, fmt.Errorf("%w: log level: %w", errUsage, err)
	}
	a.log = l.Log
	return o, fs.Args(), nil
}

// keeper builds the KeeperService for o. The returned closer releases the
// history database. History is an index beside the secret files: if it
// cannot be opened (another process may hold it) the keeper runs without
// one, unless needHistory is set.
func (a *app) keeper(o *options, needHistory bool) (*service.KeeperService, func(), error) {
	scheme, err := commitment.ParseScheme(o.scheme)
	if err != nil {
		return nil, nil, err
	}

	var (
		hist   service.History
		closer = func() {}
	)
	if o.history != "" {
		store, err := history.Open(o.history)
		switch {
		case err != nil && needHistory:
			return nil, nil, err
		case err != nil:
			a.log.Warn("history unavailable, continuing without it",
				zap.String("dir", o.history), zap.Error(err))
		default:
			hist = store
			closer = func() {
				if err := store.Close(); err != nil {
					a.log.Warn("closing history failed", zap.Error(err))
				}
			}
		}
	}

	k := service.NewKeeperService(pepper.NewGenerator(), storage.NewSecretStore(), hist, a.log, service.KeeperConfig{
		Scheme:       scheme,
		PepperLength: o.pepperLen,
		SecretsDir:   o.dir,
	})
	return k, closer, nil
}

func envOr(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func defaultHistoryDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "commitkeeper", "history")
}
