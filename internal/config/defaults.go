package config

import "time"

const (
	// DefaultProjectPath is the default project path
	DefaultProjectPath = "."
	// DefaultConfigFile is looked up in the project path when no config file is given
	DefaultConfigFile = "testmgr.yaml"
	// DefaultEnvFile is loaded from the project path when present
	DefaultEnvFile = ".env"

	// DefaultStoreBackend is the default persisted-state backend
	DefaultStoreBackend = BackendFile
	// DefaultStoreKey is the key the manager state is stored under
	DefaultStoreKey = "testmgr"
	// DefaultStoreFile is the prefs file of the file backend, relative to the state dir
	DefaultStoreFile = "prefs.json"
	// DefaultStateDir is the directory for prefs and reports, relative to the project
	DefaultStateDir = ".testmgr"
	// DefaultStateFormat is the format state is written in
	DefaultStateFormat = "yaml"

	// DefaultRedisURL is used by the redis backend when no URL is configured
	DefaultRedisURL = "redis://127.0.0.1:6379/0"
	// DefaultMySQLTable holds the persisted state in the mysql backend
	DefaultMySQLTable = "testmgr_prefs"

	// DefaultReportFile is the report file name
	DefaultReportFile = "last-run.json"

	// DefaultTickInterval is the time between two scheduler ticks of a headless run
	DefaultTickInterval = 16 * time.Millisecond
	// DefaultLogLevel is the default logrus level
	DefaultLogLevel = "info"
	// DefaultWorkers is the number of files parsed in parallel during discovery
	DefaultWorkers = 4
)

// DefaultRoots are the directories scanned for annotated tests, relative to the project
var DefaultRoots = []string{"."}

// DefaultPathsToIgnore are the default directories to ignore when scanning for tests
var DefaultPathsToIgnore = []string{
	"vendor",
	"node_modules",
	"testdata",
	"_examples",
	DefaultStateDir,
}
