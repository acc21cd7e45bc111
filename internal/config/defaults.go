package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/sitewright/data/db/sitewright.db"
	}
	if cfg.Generation.TimeoutSeconds == 0 {
		cfg.Generation.TimeoutSeconds = 30
	}
	if cfg.Generation.MaxConcurrency == 0 {
		cfg.Generation.MaxConcurrency = 8
	}
	if cfg.Generation.CacheSize == 0 {
		cfg.Generation.CacheSize = 1000
	}
	if cfg.Generation.DefaultServiceCount == 0 {
		cfg.Generation.DefaultServiceCount = 3
	}
	if cfg.Generation.MaxServiceCount == 0 {
		cfg.Generation.MaxServiceCount = 6
	}
	if cfg.Generation.TopK == 0 {
		cfg.Generation.TopK = 3
	}
	cfg.Ranking.ApplyDefaults()
}
