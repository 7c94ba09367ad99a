package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/digitalextinction/movementcore/config"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, config.Default().Validate())
}

func TestValidateReportsEveryViolation(t *testing.T) {
	bad := config.Default()
	bad.MaxSpeed = 0
	bad.TileSize = -1
	bad.MaxSearchSteps = 0

	err := bad.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
}
