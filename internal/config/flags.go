package config

import "github.com/spf13/pflag"

var (
	flagConfig    = new(string)
	flagDebug     = new(bool)
	flagLogFile   = new(string)
	flagMapDir    = new(string)
	flagCacheDir  = new(string)
	flagArchives  = new([]string)
	flagRadius    = new(float32)
	flagStep      = new(float32)
	flagNoSlide   = new(bool)
	flagTickRate  = new(int)
	flagWorkers   = new(int)
	flagMoveSpeed = new(float32)
)

// RegisterFlags binds the configuration flags to fs. Call it once on the
// root command's persistent flag set.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringVarP(flagConfig, "config", "c", "", "Path to config file")
	fs.BoolVar(flagDebug, "debug", false, "Enable debug logging")
	fs.StringVar(flagLogFile, "log-file", "", "Write logs to this file")
	fs.StringVar(flagMapDir, "map-dir", "", "Directory containing .gat maps")
	fs.StringVar(flagCacheDir, "cache-dir", "", "Mesh cache directory")
	fs.StringSliceVar(flagArchives, "grf", nil, "GRF archive to load maps from (repeatable)")
	fs.Float32Var(flagRadius, "radius", 0, "NPC collision radius")
	fs.Float32Var(flagStep, "step-height", 0, "Maximum climbable step")
	fs.BoolVar(flagNoSlide, "no-wall-slide", false, "Stop at walls instead of sliding along them")
	fs.IntVar(flagTickRate, "tick-rate", 0, "Simulation ticks per second")
	fs.IntVar(flagWorkers, "workers", 0, "Parallel NPC updates per tick")
	fs.Float32Var(flagMoveSpeed, "speed", 0, "NPC walk speed in units per second")
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
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagMapDir != "" {
		cfg.Data.MapDir = *flagMapDir
	}
	if *flagCacheDir != "" {
		cfg.Data.CacheDir = *flagCacheDir
	}
	if len(*flagArchives) > 0 {
		cfg.Data.Archives = append(cfg.Data.Archives, *flagArchives...)
	}
	if *flagRadius > 0 {
		cfg.Collision.Radius = *flagRadius
	}
	if *flagStep > 0 {
		cfg.Collision.StepHeight = *flagStep
	}
	if *flagNoSlide {
		cfg.Collision.WallSlide = false
	}
	if *flagTickRate > 0 {
		cfg.Movement.TickRate = *flagTickRate
	}
	if *flagWorkers > 0 {
		cfg.Movement.Workers = *flagWorkers
	}
	if *flagMoveSpeed > 0 {
		cfg.Movement.Speed = *flagMoveSpeed
	}
}
