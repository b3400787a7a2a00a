// Package config loads the orchestrator daemon configuration from an
// optional file and MAYASTOR_ prefixed environment variables.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

//Config holds the daemon configuration
type Config struct {
	//ListenAddress is the address the REST server binds to
	ListenAddress string `mapstructure:"listenaddress"`
	//AgentPort is the control port storage agents listen on
	AgentPort int `mapstructure:"agentport"`
	//AgentTimeout bounds every storage agent call
	AgentTimeout time.Duration `mapstructure:"agenttimeout"`
	//ReplicaFanOut limits concurrent replica creations per volume
	ReplicaFanOut int `mapstructure:"replicafanout"`
	//Rollback enables best-effort cleanup of replicas on failed creates
	Rollback bool `mapstructure:"rollback"`
	//LogLevel is a zerolog level, 0 is debug, 1 is info
	LogLevel int `mapstructure:"loglevel"`
	//LogPretty switches to the human readable console writer
	LogPretty bool `mapstructure:"logpretty"`
}

//Load reads the configuration. path may be empty, in which case only
//defaults and environment variables apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("listenaddress", ":10130")
	v.SetDefault("agentport", 10124)
	v.SetDefault("agenttimeout", 30*time.Second)
	v.SetDefault("replicafanout", 4)
	v.SetDefault("rollback", true)
	v.SetDefault("loglevel", 1)
	v.SetDefault("logpretty", false)

	v.SetEnvPrefix("MAYASTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading configuration %s", path)
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "error reading configuration")
	}
	return &cfg, nil
}
