package config

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/jenkins-x-apps/jacoco-go/internal/logging"
	"github.com/jenkins-x-apps/jacoco-go/internal/util"
	"github.com/magiconair/properties"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

var (
	settings = map[string]Setting{}
)

func init() {
	// JX namespace
	settings["Namespace"] = Setting{"TEAM_NAMESPACE", "jx.namespace", "jx", []func(interface{}, string) error{util.IsNotEmpty}}

	// Logging
	settings["Level"] = Setting{"LOG_LEVEL", "log.level", "info", []func(interface{}, string) error{util.IsNotEmpty}}

	// Report
	settings["ReportName"] = Setting{"JACOCO_REPORT_NAME", "report.name", "coverage", []func(interface{}, string) error{util.IsNotEmpty}}
	settings["OutputDir"] = Setting{"JACOCO_OUTPUT_DIR", "report.output", "target/jacoco", []func(interface{}, string) error{util.IsNotEmpty}}
	settings["SourceDirs"] = Setting{"JACOCO_SOURCE_DIRS", "report.sources", "src/main/java", nil}
	settings["TabWidth"] = Setting{"JACOCO_TAB_WIDTH", "report.tabwidth", "4", []func(interface{}, string) error{util.IsPositiveInt}}
	settings["Locale"] = Setting{"JACOCO_LOCALE", "report.locale", "en", []func(interface{}, string) error{util.IsNotEmpty}}
	settings["Footer"] = Setting{"JACOCO_FOOTER", "report.footer", "", nil}
	settings["Encoding"] = Setting{"JACOCO_ENCODING", "report.encoding", "utf-8", []func(interface{}, string) error{util.IsNotEmpty}}
	settings["Console"] = Setting{"JACOCO_CONSOLE", "report.console", "true", []func(interface{}, string) error{util.IsBool}}

	// Execution data and class definitions
	settings["DataFile"] = Setting{"JACOCO_DATA_FILE", "data.file", "jacoco.db", []func(interface{}, string) error{util.IsNotEmpty}}
	settings["DefinitionsDir"] = Setting{"JACOCO_DEFINITIONS_DIR", "data.definitions", "target/classes", []func(interface{}, string) error{util.IsNotEmpty}}

	// Filter
	settings["Includes"] = Setting{"JACOCO_INCLUDES", "filter.includes", "", nil}
	settings["Excludes"] = Setting{"JACOCO_EXCLUDES", "filter.excludes", "", nil}
	settings["Workers"] = Setting{"JACOCO_WORKERS", "analysis.workers", strconv.Itoa(runtime.NumCPU()), []func(interface{}, string) error{util.IsPositiveInt}}
}

// Setting is an element in the app configuration. It contains the environment
// variable from which the setting is retrieved, the key of the setting in a
// properties file, its default value as well as a list of validations which
// the value of this setting needs to pass.
type Setting struct {
	key          string
	property     string
	defaultValue string
	validations  []func(interface{}, string) error
}

// EnvConfig is a Configuration implementation which reads the configuration from
// the process environment, falling back to an optional properties file and the defaults.
type EnvConfig struct {
	v *viper.Viper
}

// NewConfiguration creates a configuration instance. propertiesFile may be empty.
func NewConfiguration(propertiesFile string) (Configuration, error) {
	v := viper.New()
	for _, setting := range settings {
		v.SetDefault(setting.property, setting.defaultValue)
		if err := v.BindEnv(setting.property, setting.key); err != nil {
			return nil, errors.Wrapf(err, "unable to bind %s", setting.key)
		}
	}

	if propertiesFile != "" {
		props, err := properties.LoadFile(propertiesFile, properties.UTF8)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to load %s", propertiesFile)
		}
		for _, setting := range settings {
			if value, ok := props.Get(setting.property); ok {
				v.SetDefault(setting.property, value)
			}
		}
	}

	config := EnvConfig{v: v}

	// Check if we have all we need.
	multiError := config.verify()
	if !multiError.Empty() {
		for _, err := range multiError.Errors {
			logging.AppLogger().Error(err)
		}
		return nil, errors.New("one or more required settings for this configuration are missing or invalid")
	}

	return &config, nil
}

// Namespace returns the JX namespace to watch.
func (c *EnvConfig) Namespace() string {
	callPtr, _, _, _ := runtime.Caller(0)
	return c.value(util.NameOfFunction(callPtr))
}

// Level returns the logging level.
func (c *EnvConfig) Level() string {
	callPtr, _, _, _ := runtime.Caller(0)
	return c.value(util.NameOfFunction(callPtr))
}

// ReportName returns the name of the root bundle or group.
func (c *EnvConfig) ReportName() string {
	callPtr, _, _, _ := runtime.Caller(0)
	return c.value(util.NameOfFunction(callPtr))
}

// OutputDir returns the directory reports are written to.
func (c *EnvConfig) OutputDir() string {
	callPtr, _, _, _ := runtime.Caller(0)
	return c.value(util.NameOfFunction(callPtr))
}

// SourceDirs returns the directories searched for source files.
func (c *EnvConfig) SourceDirs() []string {
	callPtr, _, _, _ := runtime.Caller(0)
	return util.SplitList(c.value(util.NameOfFunction(callPtr)))
}

// TabWidth returns the number of blanks a tab expands to in source pages.
func (c *EnvConfig) TabWidth() int {
	callPtr, _, _, _ := runtime.Caller(0)
	return c.intValue(util.NameOfFunction(callPtr))
}

// Locale returns the locale used to format numbers.
func (c *EnvConfig) Locale() string {
	callPtr, _, _, _ := runtime.Caller(0)
	return c.value(util.NameOfFunction(callPtr))
}

// Footer returns the text shown at the bottom of every HTML page.
func (c *EnvConfig) Footer() string {
	callPtr, _, _, _ := runtime.Caller(0)
	return c.value(util.NameOfFunction(callPtr))
}

// Encoding returns the character encoding of sources and HTML pages.
func (c *EnvConfig) Encoding() string {
	callPtr, _, _, _ := runtime.Caller(0)
	return c.value(util.NameOfFunction(callPtr))
}

// Console returns whether a coverage summary is printed to the terminal.
func (c *EnvConfig) Console() bool {
	callPtr, _, _, _ := runtime.Caller(0)
	b, _ := strconv.ParseBool(c.value(util.NameOfFunction(callPtr)))
	return b
}

// DataFile returns the SQLite file holding merged execution data.
func (c *EnvConfig) DataFile() string {
	callPtr, _, _, _ := runtime.Caller(0)
	return c.value(util.NameOfFunction(callPtr))
}

// DefinitionsDir returns the directory holding class definition files.
func (c *EnvConfig) DefinitionsDir() string {
	callPtr, _, _, _ := runtime.Caller(0)
	return c.value(util.NameOfFunction(callPtr))
}

// Includes returns the class name patterns to analyze.
func (c *EnvConfig) Includes() []string {
	callPtr, _, _, _ := runtime.Caller(0)
	return util.SplitList(c.value(util.NameOfFunction(callPtr)))
}

// Excludes returns the class name patterns to skip.
func (c *EnvConfig) Excludes() []string {
	callPtr, _, _, _ := runtime.Caller(0)
	return util.SplitList(c.value(util.NameOfFunction(callPtr)))
}

// Workers returns the number of classes analyzed in parallel.
func (c *EnvConfig) Workers() int {
	callPtr, _, _, _ := runtime.Caller(0)
	return c.intValue(util.NameOfFunction(callPtr))
}

// String returns a string representation of the configuration.
func (c *EnvConfig) String() string {
	config := map[string]interface{}{}
	for key, setting := range settings {
		value := c.value(key)
		// don't echo passwords
		if strings.Contains(setting.key, "PASSWORD") && len(value) > 0 {
			value = "***"
		}
		config[key] = value

	}
	return fmt.Sprintf("%v", config)
}

// verify checks whether all needed config options are set.
func (c *EnvConfig) verify() util.MultiError {
	var errors util.MultiError
	for key, setting := range settings {
		value := c.value(key)

		for _, validateFunc := range setting.validations {
			errors.Collect(validateFunc(value, setting.key))
		}
	}

	return errors
}

func (c *EnvConfig) value(funcName string) string {
	setting := settings[funcName]
	return c.v.GetString(setting.property)
}

func (c *EnvConfig) intValue(funcName string) int {
	i, _ := strconv.Atoi(c.value(funcName))
	return i
}
