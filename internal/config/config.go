package config

// Configuration declares the configuration properties of this app.
type Configuration interface {
	JXConfig
	LogConfig
	ReportConfig
	DataConfig
	FilterConfig

	// String returns a string representation of the configuration.
	String() string
}

// JXConfig defines JX specific configuration.
type JXConfig interface {
	// Namespace returns the JX namespace to watch.
	Namespace() string
}

// LogConfig defines the logging configuration.
type LogConfig interface {
	// Level returns the logging level.
	Level() string
}

// ReportConfig defines how coverage reports are rendered.
type ReportConfig interface {
	// ReportName returns the name of the root bundle or group.
	ReportName() string
	// OutputDir returns the directory reports are written to.
	OutputDir() string
	// SourceDirs returns the directories searched for source files.
	SourceDirs() []string
	// TabWidth returns the number of blanks a tab expands to in source pages.
	TabWidth() int
	// Locale returns the locale used to format numbers.
	Locale() string
	// Footer returns the text shown at the bottom of every HTML page.
	Footer() string
	// Encoding returns the character encoding of sources and HTML pages.
	Encoding() string
	// Console returns whether a coverage summary is printed to the terminal.
	Console() bool
}

// DataConfig defines where execution data and class definitions are kept.
type DataConfig interface {
	// DataFile returns the SQLite file holding merged execution data.
	DataFile() string
	// DefinitionsDir returns the directory holding class definition files.
	DefinitionsDir() string
}

// FilterConfig defines which classes are analyzed and how many in parallel.
type FilterConfig interface {
	// Includes returns the class name patterns to analyze. Empty means all.
	Includes() []string
	// Excludes returns the class name patterns to skip.
	Excludes() []string
	// Workers returns the number of classes analyzed in parallel.
	Workers() int
}
