package config

// Location types understood by the datasource package.
const (
	LocalFile = "localFile"
	Minio     = "minio"
)

// Location is a place datasets are read from. For a localFile location Path
// is the data directory; for a minio location Path is the object prefix
// inside MinioBucket on the server at Location.
type Location struct {
	LocationName   string `mapstructure:"location_name" json:"location_name"`
	LocationType   string `mapstructure:"location_type" json:"location_type"`
	Path           string `mapstructure:"path" json:"path,omitempty"`
	MinioBucket    string `mapstructure:"minio_bucket" json:"minio_bucket,omitempty"`
	Location       string `mapstructure:"location" json:"location,omitempty"`
	MinioAccessKey string `mapstructure:"minio_access_key" json:"-"`
	MinioSecretKey string `mapstructure:"minio_secret_key" json:"-"`
	MinioSecure    bool   `mapstructure:"minio_secure" json:"minio_secure,omitempty"`
}

// Configuration Struct for Configuration File
type Configuration struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Debug           bool   `mapstructure:"debug"`
	EnableAPM       bool   `mapstructure:"enable_apm"`
	UseCache        bool   `mapstructure:"use_cache"`
	CacheLocation   string `mapstructure:"cache_location"`
	CacheMaxBytes   int64  `mapstructure:"cache_max_bytes"`
	CheckCacheEvery int    `mapstructure:"check_cache_every"`
	Workers         int    `mapstructure:"workers"`
	LoadTimeout     int    `mapstructure:"load_timeout"`
	MatchLimit      int    `mapstructure:"match_limit"`

	// Browser defaults, also read from the [tdbr] section of a tdbr.ini.
	DataDirectory string `mapstructure:"data_directory"`
	Facility      string `mapstructure:"facility"`
	ShotNumber    string `mapstructure:"shot_number"`
	Channel       string `mapstructure:"channel"`
	SaveFile      string `mapstructure:"save_file"`

	LocationDetails []Location `mapstructure:"location_details"`
}

// DefaultLocationName names the localFile location synthesized from
// data_directory when no locations are configured.
const DefaultLocationName = "local"

// FindLocation returns the configured location called name.
func (c *Configuration) FindLocation(name string) (Location, bool) {
	for i := range c.LocationDetails {
		if c.LocationDetails[i].LocationName == name {
			return c.LocationDetails[i], true
		}
	}
	return Location{}, false
}
