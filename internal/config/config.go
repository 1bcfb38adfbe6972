package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds settings for the indexing pass, loaded from flags,
// environment (POOLSCOPE_*), or a config file.
type Config struct {
	RPCURL         string
	PgDSN          string
	Pools          []string
	WindowSize     uint64
	LookbackBlocks uint64
	MaxRetries     int
	RetryBackoff   time.Duration
	Journal        string
	LogLevel       string
}

// Load merges config file, environment variables, and flags.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:         v.GetString("rpc"),
		PgDSN:          v.GetString("pg-dsn"),
		Pools:          getStringSlice(v, "pool"),
		WindowSize:     v.GetUint64("window-size"),
		LookbackBlocks: v.GetUint64("lookback"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		Journal:        v.GetString("journal"),
		LogLevel:       v.GetString("log-level"),
	}

	return cfg, nil
}

// QueryConfig holds settings shared by the read-side commands.
type QueryConfig struct {
	RPCURL   string
	PgDSN    string
	Pool     string
	Token0   string
	Token1   string
	Hours    int
	Days     int
	Factory  string
	Stable   bool
	Chain    string
	LogLevel string
}

// LoadQuery merges config for the query commands.
func LoadQuery(cfgFile string, flags *pflag.FlagSet) (QueryConfig, error) {
	v, err := newViper(cfgFile, flags)
	if err != nil {
		return QueryConfig{}, err
	}

	cfg := QueryConfig{
		RPCURL:   v.GetString("rpc"),
		PgDSN:    v.GetString("pg-dsn"),
		Pool:     v.GetString("pool"),
		Token0:   v.GetString("token0"),
		Token1:   v.GetString("token1"),
		Hours:    v.GetInt("hours"),
		Days:     v.GetInt("days"),
		Factory:  v.GetString("factory"),
		Stable:   v.GetBool("stable"),
		Chain:    v.GetString("chain"),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}

func newViper(cfgFile string, flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("POOLSCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("window-size", uint64(5000))
	v.SetDefault("lookback", uint64(200_000))
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("hours", 48)
	v.SetDefault("days", 7)
	v.SetDefault("chain", "base")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
