package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beesaferoot/rental-booking/internal/config"
)

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rental.log")
	logger, closer, err := New(&config.Config{LogLevel: "debug", LogFile: path})
	require.NoError(t, err)

	logger.WithFields(logrus.Fields{"component": "test"}).Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"test"`)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
}

func TestNewStderr(t *testing.T) {
	logger, closer, err := New(&config.Config{LogLevel: "warn"})
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.NoError(t, closer.Close())
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(&config.Config{LogLevel: "chatty"})
	assert.Error(t, err)
}
