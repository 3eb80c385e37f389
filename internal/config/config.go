// Package config provides functionality for managing configuration options
// for the registry server using command-line flags, a JSON config file and
// environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"
)

// Options holds the configuration values for the registry server.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"server_address"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// LogLevel is the zap level name ("debug", "info", ...).
	LogLevel string `json:"log_level"`

	// CleanSpec is the cron schedule of the revealed-commitment purge.
	CleanSpec string `json:"clean_spec"`

	// Retention is how long revealed commitments are kept.
	Retention time.Duration `json:"-"`

	// RetentionRaw is the retention as written in the config file ("720h").
	RetentionRaw string `json:"retention"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`
}

// Parse parses os.Args and the environment. It exits the process on error,
// the way a server entry point expects.
func Parse() *Options {
	opts, err := ParseArgs(os.Args[0], os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return opts
}

// ParseArgs builds Options from args and getenv. Precedence, lowest first:
// flag defaults, config file, explicitly set flags, environment variables.
func ParseArgs(name string, args []string, getenv func(string) string) (*Options, error) {
	options := &Options{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&options.Port, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.Config, "config", "config.json", "path to config file")
	fs.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
	fs.StringVar(&options.LogLevel, "l", "info", "log level")
	fs.StringVar(&options.CleanSpec, "clean", "@hourly", "cron schedule for purging revealed commitments")
	fs.DurationVar(&options.Retention, "retention", 30*24*time.Hour, "how long revealed commitments are kept")
	fs.StringVar(&options.TLSCert, "tls-cert", "", "TLS certificate file")
	fs.StringVar(&options.TLSKey, "tls-key", "", "TLS key file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if err := applyFile(fs, options); err != nil {
			return nil, err
		}
	}

	if serverAddress := getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Port = serverAddress
	}
	if dsn := getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		options.LogLevel = level
	}

	return options, nil
}

// applyFile loads the JSON config file into options. Flags given on the
// command line win over the file. A missing file is not an error.
func applyFile(fs *flag.FlagSet, options *Options) error {
	data, err := os.ReadFile(options.Config)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}

	var fromFile Options
	if err := json.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if fromFile.Port != "" && !set["a"] {
		options.Port = fromFile.Port
	}
	if fromFile.DatabaseDSN != "" && !set["d"] {
		options.DatabaseDSN = fromFile.DatabaseDSN
	}
	if fromFile.LogLevel != "" && !set["l"] {
		options.LogLevel = fromFile.LogLevel
	}
	if fromFile.CleanSpec != "" && !set["clean"] {
		options.CleanSpec = fromFile.CleanSpec
	}
	if fromFile.RetentionRaw != "" && !set["retention"] {
		d, err := time.ParseDuration(fromFile.RetentionRaw)
		if err != nil {
			return fmt.Errorf("error while parsing config file: retention: %w", err)
		}
		options.Retention = d
	}
	if fromFile.TLSCert != "" && !set["tls-cert"] {
		options.TLSCert = fromFile.TLSCert
	}
	if fromFile.TLSKey != "" && !set["tls-key"] {
		options.TLSKey = fromFile.TLSKey
	}
	return nil
}
