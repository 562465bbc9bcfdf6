package config

func loadDevelopmentConfig(cfg *Config) {
	cfg.DatabaseDebug = true
	if cfg.DatabaseFilePath == "" {
		cfg.DatabaseFilePath = "./tmp/locallibrary.sqlite"
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "development-secret"
	}
	cfg.ServerHost = "127.0.0.1"
}
