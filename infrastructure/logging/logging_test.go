package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"debug":   logrus.DebugLevel,
		"INFO":    logrus.InfoLevel,
		"":        logrus.InfoLevel,
		"warning": logrus.WarnLevel,
		" warn ":  logrus.WarnLevel,
		"error":   logrus.ErrorLevel,
		"fatal":   logrus.FatalLevel,
	}
	for in, want := range tests {
		logger := logrus.New()
		require.NoError(t, SetLogLevel(logger, in), in)
		assert.Equal(t, want, logger.GetLevel(), in)
	}

	assert.Error(t, SetLogLevel(logrus.New(), "verbose"))
}

func TestNew(t *testing.T) {
	logger, err := New("debug")
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())

	_, err = New("loud")
	assert.Error(t, err)
}
