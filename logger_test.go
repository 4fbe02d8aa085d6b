package main

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestLogCustomRegistersTagColor(t *testing.T) {
	c := color.New(color.FgCyan)
	LogCustom("minigame", c, "round %d", 1)
	t.Cleanup(func() { customTagColors.Delete("MINIGAME") })

	assert.Same(t, c, getComponentColor("MINIGAME"))
	assert.NotSame(t, c, getComponentColor("GIVEAWAY"))
}

func TestGetComponentColorDefaults(t *testing.T) {
	assert.Equal(t, color.New(), getComponentColor("DATABASE"))
	assert.Equal(t, color.New(color.FgMagenta), getComponentColor("TICKETS"))
}
