package guard

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	g := Default()

	tests := []struct {
		name       string
		disallowed bool
	}{
		{"system.indexes.json", true},
		{"system.indexes.csv", true},
		{"system.indexes.bson", true},
		{"system.users.json", true},
		{"system.users.bson", true},
		{"orders.metadata.json", true},
		{"system.indexes.jsonx", true},
		{"users.json", false},
		{"system.js.json", false},
		{"my.system.indexes.json", false},
		{".metadata.json", false},
		{"orders.metadata.csv", false},
		{"SYSTEM.INDEXES.JSON", false},
		{"system.indexes.xml", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.disallowed, g.Disallowed(tt.name))
			err := g.Check(tt.name)
			if tt.disallowed {
				assert.ErrorIs(t, err, ErrDisallowed)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheck_NamesRule(t *testing.T) {
	err := Default().Check("orders.metadata.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata")
}

func TestNew(t *testing.T) {
	_, err := New(Rule{Name: "broken"})
	assert.Error(t, err)

	g, err := New(Rule{Name: "tmp", Pattern: regexp.MustCompile(`^tmp\.`)})
	require.NoError(t, err)
	assert.True(t, g.Disallowed("tmp.json"))
	assert.False(t, g.Disallowed("users.json"))

	rules := g.Rules()
	rules[0].Name = "changed"
	assert.Equal(t, "tmp", g.Rules()[0].Name)
}
