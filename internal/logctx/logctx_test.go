package logctx

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountFlagAccumulatesOnBoolSet(t *testing.T) {
	var c CountFlag
	require.NoError(t, c.Set("true"))
	require.NoError(t, c.Set("true"))
	require.NoError(t, c.Set("true"))
	assert.Equal(t, CountFlag(3), c)
}

func TestCountFlagAcceptsExplicitNumber(t *testing.T) {
	var c CountFlag
	require.NoError(t, c.Set("5"))
	assert.Equal(t, CountFlag(5), c)
}

func TestNewLevelMapping(t *testing.T) {
	assert.Equal(t, logrus.WarnLevel, New(0).Level)
	assert.Equal(t, logrus.InfoLevel, New(1).Level)
	assert.Equal(t, logrus.DebugLevel, New(2).Level)
}
