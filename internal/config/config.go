package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// LegacySection is the section of a tdbr.ini holding browser defaults.
const LegacySection = "tdbr"

func setDefaults(v *viper.Viper) {
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 5055)
	v.SetDefault("debug", false)
	v.SetDefault("enable_apm", false)
	v.SetDefault("use_cache", true)
	v.SetDefault("cache_location", "./tdscache/")
	v.SetDefault("cache_max_bytes", 100000000)
	v.SetDefault("check_cache_every", 60)
	v.SetDefault("workers", 4)
	v.SetDefault("load_timeout", 0)
	v.SetDefault("match_limit", 16)
	v.SetDefault("data_directory", ".")
	v.SetDefault("facility", "")
	v.SetDefault("shot_number", "")
	v.SetDefault("channel", "")
	v.SetDefault("save_file", "tdbr.dat")
}

// LoadConfig reads configFile (YAML, JSON or INI, by extension) and returns
// the resulting Configuration. Values may be overridden from the environment
// with a TDS_ prefix, e.g. TDS_PORT. An empty configFile yields the defaults.
func LoadConfig(configFile string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("TDS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", configFile)
		}
	}

	// Keys of a [tdbr] section apply unless also set at the top level.
	if legacy := v.Sub(LegacySection); legacy != nil {
		for _, key := range legacy.AllKeys() {
			if !v.InConfig(key) {
				v.Set(key, legacy.Get(key))
			}
		}
	}

	configuration := &Configuration{}
	if err := v.Unmarshal(configuration); err != nil {
		return nil, errors.Wrapf(err, "decoding config file %s", configFile)
	}

	if len(configuration.LocationDetails) == 0 {
		configuration.LocationDetails = []Location{{
			LocationName: DefaultLocationName,
			LocationType: LocalFile,
			Path:         configuration.DataDirectory,
		}}
	}
	return configuration, nil
}
