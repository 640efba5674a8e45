package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kuritho/vendo-finder-final/internal/geo"
	"github.com/Kuritho/vendo-finder-final/internal/vendo"
)

func TestPrintMachines(t *testing.T) {
	locator := geo.NewLocator(vendo.Machines(), geo.Coordinate{Latitude: 7.005314, Longitude: 125.087830}, 40)

	var buf bytes.Buffer
	require.NoError(t, printMachines(&buf, locator.Search(geo.Query{Name: "osorio"})))

	out := buf.String()
	assert.Contains(t, out, "1 machine(s) within 40.0 km of default location")
	assert.Contains(t, out, "Osorio Diaper Vendo")
	assert.Contains(t, out, "23.1")
}
