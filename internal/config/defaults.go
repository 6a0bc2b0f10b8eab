package config

const (
	defaultStatusLogName  = ".mkvtag.json"
	defaultTaggerCommand  = "mkvpropedit"
	defaultProbeCommand   = "mkvinfo"
	defaultPollInterval   = 5
	defaultQuietPeriod    = 10
	defaultLoops          = -1
	defaultGoneGraceHours = 24
	defaultHistoryPath    = "~/.local/share/mkvtag/history.db"
	defaultLogDir         = "~/.local/share/mkvtag/logs"
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	defaultLogMaxSizeMB   = 20
	defaultLogMaxBackups  = 5
	defaultLogMaxAgeDays  = 30
	defaultNtfyTimeout    = 10
)

var defaultExtensions = []string{".mkv"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Watch: Watch{
			Extensions:     append([]string(nil), defaultExtensions...),
			PollInterval:   defaultPollInterval,
			QuietPeriod:    defaultQuietPeriod,
			Loops:          defaultLoops,
			GoneGraceHours: defaultGoneGraceHours,
		},
		Tagger: Tagger{
			Command:      defaultTaggerCommand,
			Args:         []string{"--add-track-statistics-tags"},
			ProbeCommand: defaultProbeCommand,
		},
		History: History{
			Path: defaultHistoryPath,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Completions:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			Dir:        defaultLogDir,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
