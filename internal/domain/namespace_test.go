package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNamespaceID(t *testing.T) {
	valid := []string{
		"a1b2c3d4-0000-4000-8000-000000000000",
		"A1B2C3D4-ABCD-4EF0-8000-0000000000FF",
		"00000000-0000-0000-0000-000000000000",
	}
	for _, s := range valid {
		assert.True(t, IsNamespaceID(s), s)
	}

	invalid := []string{
		"",
		"status",
		"a1b2c3d4-0000-4000-8000-000000000000\n",
		" a1b2c3d4-0000-4000-8000-000000000000",
		"a1b2c3d4-0000-4000-8000-0000000000000",
		"a1b2c3d40000-4000-8000-000000000000",
		"{a1b2c3d4-0000-4000-8000-000000000000}",
		"urn:uuid:a1b2c3d4-0000-4000-8000-000000000000",
		"z1b2c3d4-0000-4000-8000-000000000000",
		"../../../etc/passwd",
	}
	for _, s := range invalid {
		assert.False(t, IsNamespaceID(s), "%q", s)
	}
}

func TestParseNamespaceID(t *testing.T) {
	id, err := ParseNamespaceID("a1b2c3d4-0000-4000-8000-000000000000")
	assert.NoError(t, err)
	assert.Equal(t, "a1b2c3d4-0000-4000-8000-000000000000", id)

	_, err = ParseNamespaceID("nope")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
