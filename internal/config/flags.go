package config

import "flag"

var (
	flagConfig   = flag.String("config", "", "Path to config file")
	flagDebug    = flag.Bool("debug", false, "Enable debug logging")
	flagSource   = flag.String("source", "", "Elevation source (synthetic, open-elevation)")
	flagEndpoint = flag.String("endpoint", "", "Elevation lookup endpoint URL")
	flagInterval = flag.Duration("batch-interval", -1, "Delay between elevation batches")
	flagOutDir   = flag.String("out", "", "Output directory for exported files")
	flagLogFile  = flag.String("log-file", "", "Write logs to this file")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSource != "" {
		cfg.Acquisition.Source = *flagSource
	}
	if *flagEndpoint != "" {
		cfg.Acquisition.Endpoint = *flagEndpoint
	}
	if *flagInterval >= 0 {
		cfg.Acquisition.BatchInterval = *flagInterval
	}
	if *flagOutDir != "" {
		cfg.Export.OutputDir = *flagOutDir
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
}
