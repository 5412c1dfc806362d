package main

import (
	"strings"
	"testing"

	"github.com/passbi/passbi_planner/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPairs(t *testing.T) {
	t.Run("Header comments and quoting", func(t *testing.T) {
		input := "origin,destination\n# east coast\nRome, Baltimore\n\"Paris, TX\",Dallas\n"

		pairs, err := readPairs(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, []pair{
			{Origin: "Rome", Destination: "Baltimore"},
			{Origin: "Paris, TX", Destination: "Dallas"},
		}, pairs)
	})

	t.Run("Wrong column count", func(t *testing.T) {
		_, err := readPairs(strings.NewReader("Rome,Baltimore,extra\n"))
		assert.Error(t, err)
	})

	t.Run("Blank field", func(t *testing.T) {
		_, err := readPairs(strings.NewReader("Rome,\n"))
		assert.Error(t, err)
	})
}

func TestReadYAMLPairs(t *testing.T) {
	t.Run("Pairs list", func(t *testing.T) {
		input := "pairs:\n  - origin: Rome\n    destination: Baltimore\n  - origin: \" Berlin \"\n    destination: Munich\n"

		pairs, err := readYAMLPairs(strings.NewReader(input))
		require.NoError(t, err)
		assert.Equal(t, []pair{
			{Origin: "Rome", Destination: "Baltimore"},
			{Origin: "Berlin", Destination: "Munich"},
		}, pairs)
	})

	t.Run("Empty document", func(t *testing.T) {
		pairs, err := readYAMLPairs(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, pairs)
	})

	t.Run("Missing destination", func(t *testing.T) {
		_, err := readYAMLPairs(strings.NewReader("pairs:\n  - origin: Rome\n"))
		assert.Error(t, err)
	})
}

func TestCollectPairs(t *testing.T) {
	pairs, err := collectPairs("", "Rome", "Baltimore")
	require.NoError(t, err)
	assert.Equal(t, []pair{{Origin: "Rome", Destination: "Baltimore"}}, pairs)

	_, err = collectPairs("", "Rome", "")
	assert.Error(t, err)

	_, err = collectPairs("/nonexistent/pairs.csv", "", "")
	assert.Error(t, err)
}

func TestParseModes(t *testing.T) {
	modes, err := parseModes("")
	require.NoError(t, err)
	assert.Equal(t, models.AllModes(), modes)

	modes, err = parseModes("Car, bus")
	require.NoError(t, err)
	assert.Equal(t, []models.Mode{models.ModeCar, models.ModeBus}, modes)

	_, err = parseModes("car,teleport")
	assert.Error(t, err)
}
