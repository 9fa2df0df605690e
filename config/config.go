// Package config holds the daemon configuration. Values are read, by
// increasing priority, from the defaults, an optional TOML/YAML/JSON file,
// the CIPHERVOTE_* environment variables and the command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vocdoni/ciphervote/crypto/ecc/curves"
	"github.com/vocdoni/ciphervote/log"
	"github.com/vocdoni/ciphervote/session"
)

// EnvPrefix is the prefix of the environment variables, so the flag
// --max-votes is read from CIPHERVOTE_MAX_VOTES.
const EnvPrefix = "CIPHERVOTE"

// MaxVotesLimit is the highest accepted max-votes value.
const MaxVotesLimit = 1 << 32

// Config is the ciphervoted configuration.
type Config struct {
	Datadir   string `mapstructure:"datadir"`
	LogLevel  string `mapstructure:"log-level"`
	LogOutput string `mapstructure:"log-output"`

	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// Curve is the curve of the verifier ElGamal key.
	Curve string `mapstructure:"curve"`
	// VerifierKey is the hex secp256k1 key of the local verifier. It is only
	// used the first time, afterwards the stored keys are loaded.
	VerifierKey string `mapstructure:"verifier-key"`
	// Admin is the address allowed to rotate the trusted verifier. Empty
	// means the verifier itself.
	Admin string `mapstructure:"admin"`

	MaxDuration      time.Duration `mapstructure:"max-duration"`
	MaxOptions       int           `mapstructure:"max-options"`
	MaxVotes         uint64        `mapstructure:"max-votes"`
	MaxStartDelay    time.Duration `mapstructure:"max-start-delay"`
	FinalizeInterval time.Duration `mapstructure:"finalize-interval"`
}

// Default returns the default configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	limits := session.DefaultConfig()
	return &Config{
		Datadir:          filepath.Join(home, ".ciphervote"),
		LogLevel:         log.LogLevelInfo,
		LogOutput:        "stdout",
		Host:             "0.0.0.0",
		Port:             9090,
		Curve:            curves.CurveTypeBabyJubJub,
		MaxDuration:      limits.MaxDuration,
		MaxOptions:       limits.MaxOptions,
		MaxVotes:         limits.MaxVotesPerSession,
		MaxStartDelay:    limits.MaxStartDelay,
		FinalizeInterval: 10 * time.Second,
	}
}

// Load parses the command line arguments (without the program name) and
// the environment into a validated Config.
func Load(args []string) (*Config, error) {
	def := Default()
	fs := pflag.NewFlagSet("ciphervoted", pflag.ContinueOnError)
	configFile := fs.String("config", "", "optional configuration file")
	fs.String("datadir", def.Datadir, "directory where the database is stored")
	fs.String("log-level", def.LogLevel, "log level (debug, info, warn, error)")
	fs.String("log-output", def.LogOutput, "log output (stdout, stderr or a file path)")
	fs.String("host", def.Host, "API listen host")
	fs.Int("port", def.Port, "API listen port")
	fs.String("curve", def.Curve, fmt.Sprintf("curve of the verifier encryption key %v", curves.Curves()))
	fs.String("verifier-key", "", "hex private key of the verifier, random if empty")
	fs.String("admin", "", "address allowed to rotate the verifier")
	fs.Duration("max-duration", def.MaxDuration, "maximum voting window")
	fs.Int("max-options", def.MaxOptions, "maximum options per session")
	fs.Uint64("max-votes", def.MaxVotes, "maximum ballots per session")
	fs.Duration("max-start-delay", def.MaxStartDelay, "how far in the future a session may start")
	fs.Duration("finalize-interval", def.FinalizeInterval, "interval of the automatic finalization of ended sessions")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("cannot bind flags: %w", err)
	}
	if *configFile == "" {
		*configFile = v.GetString("config")
	}
	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("cannot read config file %s: %w", *configFile, err)
		}
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("cannot decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.Datadir == "" {
		return errors.New("datadir is required")
	}
	if !curves.IsValid(c.Curve) {
		return fmt.Errorf("unsupported curve %q, use one of %v", c.Curve, curves.Curves())
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Admin != "" && !common.IsHexAddress(c.Admin) {
		return fmt.Errorf("invalid admin address %q", c.Admin)
	}
	if c.MaxOptions < 2 {
		return fmt.Errorf("max-options must allow at least 2 options, got %d", c.MaxOptions)
	}
	if c.MaxVotes == 0 {
		return errors.New("max-votes must be positive")
	}
	// the tally lookup table grows with the square root of max-votes
	if c.MaxVotes > MaxVotesLimit {
		return fmt.Errorf("max-votes must be at most %d, got %d", uint64(MaxVotesLimit), c.MaxVotes)
	}
	if c.MaxDuration <= 0 || c.FinalizeInterval <= 0 || c.MaxStartDelay < 0 {
		return errors.New("durations must be positive")
	}
	// session durations are whole seconds
	if c.MaxDuration < time.Second {
		return fmt.Errorf("max-duration must be at least 1s, got %s", c.MaxDuration)
	}
	switch c.LogLevel {
	case log.LogLevelDebug, log.LogLevelInfo, log.LogLevelWarn, log.LogLevelError:
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return nil
}

// Session returns the engine limits.
func (c *Config) Session() session.Config {
	return session.Config{
		MaxDuration:        c.MaxDuration,
		MaxOptions:         c.MaxOptions,
		MaxVotesPerSession: c.MaxVotes,
		MaxStartDelay:      c.MaxStartDelay,
	}
}

// DBPath returns the path of the database directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.Datadir, "db")
}
