package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/glowcare/storefront/internal/app"
	_ "github.com/glowcare/storefront/internal/testing/guard"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	assert.True(t, app.InTestMode())
	assert.NotPanics(t, main)
}
