package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVariableSetUpdate(t *testing.T) {
	vars := variableSet{}

	assert.True(t, vars.update(WhitelistVariable, DefaultWhitelist), "first value is applied")
	assert.False(t, vars.update(WhitelistVariable, DefaultWhitelist), "unchanged value is skipped")
	assert.True(t, vars.update(WhitelistVariable, "0123456789"), "changed value is applied")
	assert.False(t, vars.update(WhitelistVariable, "0123456789"))
	assert.True(t, vars.update("other", ""), "empty value for a new key is applied")
	assert.False(t, vars.update("other", ""))
}
