package constants

// Filesystem layout constants. All state lives under the maestro home
// directory (usually ~/.maestro), partitioned by workspace so interrupted
// sessions can be resumed per workspace.
const (
	// MaestroHome is the name of the maestro home directory.
	MaestroHome = ".maestro"

	// WorkspacesDir is the subdirectory containing per-workspace state.
	WorkspacesDir = "workspaces"

	// StateFileName is the AgentState snapshot file within a workspace.
	StateFileName = "state.json"

	// LogsDir is the subdirectory containing rotated log files.
	LogsDir = "logs"

	// LogFileName is the main maestro log file.
	LogFileName = "maestro.log"

	// ConfigFileName is the configuration file name (without extension).
	ConfigFileName = "config"

	// ProjectConfigDir is the per-project configuration directory.
	ProjectConfigDir = ".maestro"
)
