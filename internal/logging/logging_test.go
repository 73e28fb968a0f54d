package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNewFallsBackToInfoOnUnknownLevel(t *testing.T) {
	log := New("not-a-level", false)
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestNewParsesKnownLevel(t *testing.T) {
	log := New("debug", true)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	_, ok := log.Formatter.(*logrus.JSONFormatter)
	assert.True(t, ok)
}

func TestComponentTagsSubsystem(t *testing.T) {
	log := New("info", false)
	entry := Component(log, "scanner")
	assert.Equal(t, "scanner", entry.Data["component"])
}
