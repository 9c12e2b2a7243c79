package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDSN(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "memory", input: "sqlite://:memory:", expected: ":memory:"},
		{name: "absolute path", input: "sqlite:///var/lib/lancer.db", expected: "/var/lib/lancer.db"},
		{name: "explicit relative", input: "sqlite://./lancer.db", expected: "./lancer.db"},
		{name: "bare relative", input: "sqlite://data/lancer.db", expected: "./data/lancer.db"},
		{name: "parent relative", input: "sqlite://../lancer.db", expected: "../lancer.db"},
		{name: "escaped path", input: "sqlite://my%20world.db", expected: "./my world.db"},
		{name: "query kept", input: "sqlite://lancer.db?_pragma=foo", expected: "./lancer.db?_pragma=foo"},
		{name: "wrong scheme", input: "postgres://localhost/db", wantErr: true},
		{name: "empty path", input: "sqlite://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDSN(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestIsMemory(t *testing.T) {
	assert.True(t, isMemory(":memory:"))
	assert.True(t, isMemory(":memory:?cache=shared"))
	assert.False(t, isMemory("./lancer.db"))
}
