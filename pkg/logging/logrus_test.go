package logging

import (
	"bytes"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestCreateLogger(t *testing.T) {
	level := "info"
	log := NewLogrus(level, os.Stdout)

	assert.Equal(t, log.level, level)
	assert.Equal(t, logrus.InfoLevel, log.base.GetLevel())
}

func TestGetLoggerTagsContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogrus("debug", &buf).Get("supervisor")
	logger.Info("session up")

	assert.Equal(t, &buf, logger.Logger.Out)
	assert.Contains(t, buf.String(), "Context=supervisor")
	assert.Contains(t, buf.String(), "session up")
}

func TestInvalidLevelFallsBackToInfo(t *testing.T) {
	log := NewLogrus("loud", os.Stdout)
	assert.Equal(t, logrus.InfoLevel, log.base.GetLevel())
}
