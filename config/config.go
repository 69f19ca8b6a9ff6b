// Package config handles process configuration for both fanvestctl and
// fanvestd: the API base URL, where the token lives, cache tuning and the
// mock server's listen address.
//
// Sources, strongest first: environment, a .env file in the working
// directory, ~/.fanvest.yaml, defaults.
package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/ts4z/fanvest/protocol"
	"github.com/ts4z/fanvest/query"
)

const (
	keyAPIBaseURL    = "api_base_url"
	keyToken         = "token"
	keyTokenFile     = "token_file"
	keyCacheRetain   = "cache_retain"
	keyCacheMaxIdle  = "cache_max_idle"
	keyListenAddress = "listen_address"
	keyLogLevel      = "log_level"
	keyCatalogFile   = "catalog_file"
	keyTokenHashKey  = "token_hash_key"
	keyTokenBlockKey = "token_block_key"
	keyTokenTTL      = "token_ttl"
	keyAllowOrigins  = "allowed_origins"
)

// Init loads configuration.  A missing .env or config file is fine.
func Init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("can't load .env: %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	viper.SetConfigType("yaml")
	viper.SetConfigName(".fanvest")
	viper.AddConfigPath(home)
	viper.AutomaticEnv()
	// The front-end's variable still works.
	viper.BindEnv(keyAPIBaseURL, "FANVEST_API_BASE_URL", "VITE_API_BASE_URL")
	viper.BindEnv(keyToken, "FANVEST_TOKEN")
	viper.BindEnv(keyTokenFile, "FANVEST_TOKEN_FILE")
	viper.BindEnv(keyCacheRetain, "FANVEST_CACHE_RETAIN")
	viper.BindEnv(keyCacheMaxIdle, "FANVEST_CACHE_MAX_IDLE")
	viper.BindEnv(keyListenAddress, "FANVEST_LISTEN_ADDRESS")
	viper.BindEnv(keyLogLevel, "FANVEST_LOG_LEVEL")
	viper.BindEnv(keyCatalogFile, "FANVEST_CATALOG_FILE")
	viper.BindEnv(keyTokenHashKey, "FANVEST_TOKEN_HASH_KEY")
	viper.BindEnv(keyTokenBlockKey, "FANVEST_TOKEN_BLOCK_KEY")
	viper.BindEnv(keyTokenTTL, "FANVEST_TOKEN_TTL")
	viper.BindEnv(keyAllowOrigins, "FANVEST_ALLOWED_ORIGINS")
	viper.SetDefault(keyAPIBaseURL, protocol.DefaultBaseURL)
	viper.SetDefault(keyCacheRetain, query.DefaultRetainFor)
	viper.SetDefault(keyCacheMaxIdle, query.DefaultMaxIdle)
	viper.SetDefault(keyListenAddress, ":3000")
	viper.SetDefault(keyLogLevel, "info")
	viper.SetDefault(keyTokenTTL, 24*time.Hour)
	viper.SetDefault(keyAllowOrigins, []string{"http://localhost:5173"})
	if err := viper.ReadInConfig(); err != nil {
		log.Debugf("viper can't read config file: %v", err)
	}

	configureLogging()
	log.Debugf("Using API base URL: %s", APIBaseURL())
}

func configureLogging() {
	level, err := log.ParseLevel(viper.GetString(keyLogLevel))
	if err != nil {
		log.Printf("bad log level %q, using info: %v", viper.GetString(keyLogLevel), err)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func APIBaseURL() string {
	return viper.GetString(keyAPIBaseURL)
}

// Token is a token supplied through the environment.  It wins over the
// token file.
func Token() string {
	return viper.GetString(keyToken)
}

// TokenFile is where fanvestctl keeps its token; empty means the default.
func TokenFile() string {
	return viper.GetString(keyTokenFile)
}

func CacheRetain() time.Duration {
	return viper.GetDuration(keyCacheRetain)
}

func CacheMaxIdle() int {
	return viper.GetInt(keyCacheMaxIdle)
}

// EngineConfig is the cache tuning from configuration.
func EngineConfig() *query.EngineConfig {
	return &query.EngineConfig{
		RetainFor: CacheRetain(),
		MaxIdle:   CacheMaxIdle(),
	}
}

func ListenAddress() string {
	return viper.GetString(keyListenAddress)
}

// CatalogFile overrides the mock server's embedded catalog.
func CatalogFile() string {
	return viper.GetString(keyCatalogFile)
}

// TokenKeys are the base64 securecookie keys for mock-server tokens.  Empty
// strings mean fresh random keys each boot.
func TokenKeys() (hashKey64, blockKey64 string) {
	return viper.GetString(keyTokenHashKey), viper.GetString(keyTokenBlockKey)
}

func TokenTTL() time.Duration {
	return viper.GetDuration(keyTokenTTL)
}

func AllowedOrigins() []string {
	return viper.GetStringSlice(keyAllowOrigins)
}
