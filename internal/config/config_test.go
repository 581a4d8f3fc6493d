package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"btengine/internal/config"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := config.Default()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsBadTradeParticipation(t *testing.T) {
	cfg := config.Default()
	cfg.Broker.MakerTradeParticipation = 0
	assert.Error(t, cfg.Validate())

	cfg.Broker.MakerTradeParticipation = 1.5
	assert.Error(t, cfg.Validate())
}

func TestValidate_RequiresStorePathWhenEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg.Store.Path = "./run.db"
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RejectsUnknownLogLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())
}
