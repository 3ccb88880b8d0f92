package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefreshTestMode(t *testing.T) {
	t.Cleanup(RefreshTestMode)

	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "0")
	RefreshTestMode()
	assert.False(t, InTestMode())
}
