package usecase

// ConfigFile describes TOML configuration structure.
type ConfigFile struct {
	Paths         PathsConfig         `toml:"paths"`
	Backup        BackupConfig        `toml:"backup"`
	AutoBackup    AutoBackupConfig    `toml:"auto_backup"`
	Restore       RestoreConfig       `toml:"restore"`
	Notifications NotificationsConfig `toml:"notifications"`
	Logging       LoggingConfig       `toml:"logging"`
	UI            UIConfig            `toml:"ui"`
}

// PathsConfig holds the save and backup roots. Empty values use platform defaults.
type PathsConfig struct {
	SaveRoot   string `toml:"save_root"`
	BackupRoot string `toml:"backup_root"`
}

// BackupConfig holds backup-related settings.
type BackupConfig struct {
	RetentionCount int `toml:"retention_count"`
}

// AutoBackupConfig holds scheduler settings.
type AutoBackupConfig struct {
	IntervalSeconds int      `toml:"interval_seconds"`
	PollSeconds     int      `toml:"poll_seconds"`
	EnabledSaves    []string `toml:"enabled_saves"`
}

// RestoreConfig holds restore guard settings.
type RestoreConfig struct {
	RefuseWhileGameRunning bool     `toml:"refuse_while_game_running"`
	GameProcessNames       []string `toml:"game_process_names"`
}

// NotificationsConfig holds notification settings.
type NotificationsConfig struct {
	Enabled bool   `toml:"enabled"`
	Sound   string `toml:"sound"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Dir   string `toml:"dir"`
	Level string `toml:"level"`
}

// UIConfig holds front-end preferences that the core only stores.
type UIConfig struct {
	LastSelectedSave string `toml:"last_selected_save"`
	AutoCheckUpdates bool   `toml:"auto_check_updates"`
}

const (
	// DefaultRetentionCount is the number of archives kept per save.
	DefaultRetentionCount = 10
	// DefaultAutoBackupIntervalSeconds is the scheduler interval used when none is configured.
	DefaultAutoBackupIntervalSeconds = 300
	// MinAutoBackupIntervalSeconds is the smallest accepted scheduler interval.
	MinAutoBackupIntervalSeconds = 60
	// MaxAutoBackupIntervalSeconds is the largest accepted scheduler interval.
	MaxAutoBackupIntervalSeconds = 86400
	// DefaultAutoBackupPollSeconds is how often the scheduler loop wakes up.
	DefaultAutoBackupPollSeconds = 10
)

// DefaultSaveRoot is where the game keeps its saves.
const DefaultSaveRoot = "~/Zomboid/Saves"

// DefaultBackupRoot is where archives go when no backup root is configured.
const DefaultBackupRoot = "~/ZomboidBackups"

// DefaultGameProcessNames returns process names the restore guard looks for.
func DefaultGameProcessNames() []string {
	return []string{"ProjectZomboid64", "ProjectZomboid64.exe", "ProjectZomboid32.exe", "ProjectZomboid"}
}

// DefaultConfigFile returns default TOML configuration.
func DefaultConfigFile() ConfigFile {
	return ConfigFile{
		Paths: PathsConfig{
			SaveRoot:   "",
			BackupRoot: "",
		},
		Backup: BackupConfig{
			RetentionCount: DefaultRetentionCount,
		},
		AutoBackup: AutoBackupConfig{
			IntervalSeconds: DefaultAutoBackupIntervalSeconds,
			PollSeconds:     DefaultAutoBackupPollSeconds,
			EnabledSaves:    []string{},
		},
		Restore: RestoreConfig{
			RefuseWhileGameRunning: false,
			GameProcessNames:       DefaultGameProcessNames(),
		},
		Notifications: NotificationsConfig{
			Enabled: false,
			Sound:   "default",
		},
		Logging: LoggingConfig{
			Dir:   "",
			Level: "info",
		},
		UI: UIConfig{
			AutoCheckUpdates: true,
		},
	}
}
