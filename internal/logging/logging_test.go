package logging

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	orig := log.GetLevel()
	defer log.SetLevel(orig)

	var testCases = []struct {
		level    string
		expected log.Level
	}{
		{"debug", log.DebugLevel},
		{"WARN", log.WarnLevel},
		{"trace", log.TraceLevel},
		{"snafu", log.InfoLevel},
	}

	for _, testCase := range testCases {
		SetLevel(testCase.level)
		assert.Equal(t, testCase.expected, log.GetLevel(), testCase.level)
	}
}

func TestAppLoggerCarriesAppName(t *testing.T) {
	assert.Equal(t, AppName, AppLogger().Data["app"])
}
