package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigDebug               = "debug"
	ConfigEnginePath          = "engine-path"
	ConfigEngineThreads       = "engine-threads"
	ConfigEngineHashMB        = "engine-hash-mb"
	ConfigLocalTimeoutMargin  = "local-timeout-margin"
	ConfigRemoteCallTimeout   = "remote-call-timeout"
	ConfigRaceCeiling         = "race-ceiling"
	ConfigEnsembleCeiling     = "ensemble-ceiling"
	ConfigRemoteBackends      = "remote-backends"
	ConfigLichessURL          = "lichess-url"
	ConfigChessDBURL          = "chessdb-url"
	ConfigStockfishOnlineURL  = "stockfish-online-url"
	ConfigLambdaFunction      = "lambda-function"
	ConfigHealthCheckInterval = "health-check-interval"
	ConfigHealthProbeTimeout  = "health-probe-timeout"
	ConfigDefaultDepth        = "default-depth"
	ConfigDefaultTimeBudget   = "default-time-budget"
	ConfigNatsURL             = "nats-url"
	ConfigBotSubject          = "bot-subject"
	ConfigMetricsAddr         = "metrics-addr"
)

type setting struct {
	key   string
	def   any
	usage string
}

var settings = []setting{
	{ConfigDebug, false, "debug logging on"},
	{ConfigEnginePath, "stockfish", "path to a UCI engine binary; empty disables the local engine"},
	{ConfigEngineThreads, 1, "search threads for the local engine"},
	{ConfigEngineHashMB, 0, "hash table size for the local engine in MB; 0 sizes it from system memory"},
	{ConfigLocalTimeoutMargin, 5 * time.Second, "added to the time budget to form the local engine's hard timeout"},
	{ConfigRemoteCallTimeout, 2 * time.Second, "timeout for a single remote service call"},
	{ConfigRaceCeiling, 10 * time.Second, "overall ceiling for the remote race"},
	{ConfigEnsembleCeiling, 10 * time.Second, "overall ceiling for an ensemble"},
	{ConfigRemoteBackends, []string{"lichess", "chessdb", "stockfish-online"}, "remote services to race"},
	{ConfigLichessURL, "https://lichess.org", "lichess base URL"},
	{ConfigChessDBURL, "http://www.chessdb.cn", "chessdb base URL"},
	{ConfigStockfishOnlineURL, "https://stockfish.online", "stockfish.online base URL"},
	{ConfigLambdaFunction, "", "name of a moveoracle Lambda function to use as a remote backend"},
	{ConfigHealthCheckInterval, 5 * time.Minute, "how often to re-probe backends; 0 probes only at startup"},
	{ConfigHealthProbeTimeout, 10 * time.Second, "timeout for one health probe"},
	{ConfigDefaultDepth, 12, "search depth when a request does not give one"},
	{ConfigDefaultTimeBudget, 3 * time.Second, "time budget when a request does not give one"},
	{ConfigNatsURL, "nats://localhost:4222", "NATS server URL"},
	{ConfigBotSubject, "moveoracle.analyze", "NATS subject the bot listens on"},
	{ConfigMetricsAddr, "", "listen address for prometheus metrics; empty disables"},
}

type Config struct {
	*viper.Viper
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("moveoracle")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	for _, s := range settings {
		v.SetDefault(s.key, s.def)
	}
	return v
}

// DefaultConfig is the configuration with no flags given. Environment
// variables such as MOVEORACLE_ENGINE_PATH still apply.
func DefaultConfig() Config {
	return Config{Viper: newViper()}
}

// Load parses command-line flags. Flags take precedence over environment
// variables, which take precedence over defaults.
func (c *Config) Load(args []string) error {
	c.Viper = newViper()
	fs := pflag.NewFlagSet("moveoracle", pflag.ContinueOnError)
	for _, s := range settings {
		switch d := s.def.(type) {
		case bool:
			fs.Bool(s.key, d, s.usage)
		case int:
			fs.Int(s.key, d, s.usage)
		case string:
			fs.String(s.key, d, s.usage)
		case time.Duration:
			fs.Duration(s.key, d, s.usage)
		case []string:
			fs.StringSlice(s.key, d, s.usage)
		default:
			return fmt.Errorf("setting %s has unsupported type %T", s.key, s.def)
		}
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	return c.BindPFlags(fs)
}

// AdjustRelativePaths resolves a ./-relative engine path against the
// executable's directory.
func (c *Config) AdjustRelativePaths(basepath string) {
	p := c.GetString(ConfigEnginePath)
	if strings.HasPrefix(p, "./") {
		c.Set(ConfigEnginePath, filepath.Join(basepath, p))
	}
}

// SanitizedSettings returns all settings with credentials removed, for
// logging.
func (c *Config) SanitizedSettings() map[string]any {
	all := c.AllSettings()
	if s, ok := all[ConfigNatsURL].(string); ok {
		if u, err := url.Parse(s); err == nil && u.User != nil {
			u.User = url.User("redacted")
			all[ConfigNatsURL] = u.String()
		}
	}
	return all
}
