package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"time"

	"campaignlottery/internal/config"
)

// Subcommands of the operator tool.
const (
	CommandExport   = "export"
	CommandDraw     = "draw"
	CommandFinalize = "finalize"
	CommandPurge    = "purge"
	CommandPurgeAll = "purge-all"
)

var commands = []string{CommandExport, CommandDraw, CommandFinalize, CommandPurge, CommandPurgeAll}

// Options holds one invocation of the operator tool.
type Options struct {
	Command  string
	Config   config.Config
	Count    int
	CountSet bool
	Seed     uint64
	SeedSet  bool
	Finalize bool
}

// ParseConfig parses "<command> [flags]" into Options. Flags override the
// configuration file and the environment.
func ParseConfig(args []string, errOut io.Writer) (Options, error) {
	if len(args) == 0 {
		return Options{}, fmt.Errorf("missing command (want one of %v)", commands)
	}
	opts := Options{Command: args[0], Finalize: true}
	if !slices.Contains(commands, opts.Command) {
		return Options{}, fmt.Errorf("unknown command %q (want one of %v)", opts.Command, commands)
	}

	fs := flag.NewFlagSet("lottery "+opts.Command, flag.ContinueOnError)
	fs.SetOutput(errOut)
	var (
		configPath = fs.String("config", "", "path to a YAML config file")
		envFile    = fs.String("env-file", ".env", "optional dotenv file loaded before the environment")
		flagCfg    config.Config
	)
	fs.StringVar(&flagCfg.Campaign, "campaign", "", "campaign id (empty: all campaigns)")
	fs.DurationVar(&flagCfg.Timeout, "timeout", 0, "overall timeout")
	fs.StringVar(&flagCfg.Store.Driver, "store", "", "record store: sqlite|postgres|firestore|memory")
	fs.StringVar(&flagCfg.Store.Path, "db", "", "sqlite database path")
	fs.StringVar(&flagCfg.Store.DatabaseURL, "database-url", "", "postgres connection URL")
	fs.StringVar(&flagCfg.Store.ProjectID, "project", "", "Google Cloud project id")
	fs.StringVar(&flagCfg.Identity.Driver, "identity", "", "identity store: store|redis|firebase|none")
	fs.StringVar(&flagCfg.Identity.RedisURL, "redis-url", "", "redis URL for the identity store")
	fs.StringVar(&flagCfg.Artifacts.Medium, "medium", "", "artifact medium: dir|minio")
	fs.StringVar(&flagCfg.Artifacts.Dir, "out", "", "artifact directory")
	fs.StringVar(&flagCfg.Artifacts.Format, "format", "", "artifact format: json|csv")
	if opts.Command == CommandDraw {
		fs.IntVar(&opts.Count, "count", 0, "number of winners (prompted when omitted)")
		fs.Uint64Var(&opts.Seed, "seed", 0, "seed to reproduce a previous draw")
		fs.BoolVar(&opts.Finalize, "finalize", true, "record outcomes on the applicant records after writing artifacts")
	}
	if err := fs.Parse(args[1:]); err != nil {
		return Options{}, err
	}
	if fs.NArg() > 0 {
		return Options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		return Options{}, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "campaign":
			cfg.Campaign = flagCfg.Campaign
		case "timeout":
			cfg.Timeout = flagCfg.Timeout
		case "store":
			cfg.Store.Driver = flagCfg.Store.Driver
		case "db":
			cfg.Store.Path = flagCfg.Store.Path
		case "database-url":
			cfg.Store.DatabaseURL = flagCfg.Store.DatabaseURL
		case "project":
			cfg.Store.ProjectID = flagCfg.Store.ProjectID
		case "identity":
			cfg.Identity.Driver = flagCfg.Identity.Driver
		case "redis-url":
			cfg.Identity.RedisURL = flagCfg.Identity.RedisURL
		case "medium":
			cfg.Artifacts.Medium = flagCfg.Artifacts.Medium
		case "out":
			cfg.Artifacts.Dir = flagCfg.Artifacts.Dir
		case "format":
			cfg.Artifacts.Format = flagCfg.Artifacts.Format
		case "count":
			opts.CountSet = true
		case "seed":
			opts.SeedSet = true
		}
	})
	if err := cfg.Validate(); err != nil {
		return Options{}, err
	}
	if opts.Count < 0 {
		return Options{}, errors.New("-count must not be negative")
	}
	opts.Config = cfg
	return opts, nil
}

// Timeout returns the overall deadline for the invocation.
func (o Options) Timeout() time.Duration {
	return o.Config.Timeout
}
