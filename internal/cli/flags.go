package cli

import (
	"time"

	"testmgr/internal/config"
)

// Flags holds command-line flags
type Flags struct {
	ConfigFile   string
	ProjectPath  string
	NameFilter   string
	Backend      string
	StateFormat  string
	LogLevel     string
	MetricsAddr  string
	TickInterval time.Duration
	Yes          bool

	All          bool
	Expanded     bool
	JSON         bool
	ResultsOnly  bool
	Interactive  bool
	Resolve      string
	OpenFailures bool
}

// ToConfigFlags converts CLI flags to config flags
func (f *Flags) ToConfigFlags() config.Flags {
	return config.Flags{
		ConfigFile:   f.ConfigFile,
		ProjectPath:  f.ProjectPath,
		NameFilter:   f.NameFilter,
		Backend:      f.Backend,
		StateFormat:  f.StateFormat,
		LogLevel:     f.LogLevel,
		MetricsAddr:  f.MetricsAddr,
		TickInterval: f.TickInterval,
		Yes:          f.Yes,
	}
}
