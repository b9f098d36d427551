package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReplicaOf(t *testing.T) {
	host, port, err := ParseReplicaOf("localhost 6379")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 6379, port)
}

func TestParseReplicaOfExtraWhitespace(t *testing.T) {
	host, port, err := ParseReplicaOf("  127.0.0.1   6380  ")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", host)
	assert.Equal(t, 6380, port)
}

func TestParseReplicaOfRejectsNonNumericPort(t *testing.T) {
	_, _, err := ParseReplicaOf("localhost abc")
	require.Error(t, err)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestParseReplicaOfRejectsWrongFieldCount(t *testing.T) {
	_, _, err := ParseReplicaOf("localhost")
	assert.Error(t, err)

	_, _, err = ParseReplicaOf("localhost 6379 extra")
	assert.Error(t, err)
}
