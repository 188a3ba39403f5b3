package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{name: "regular password", password: "password123"},
		{name: "password with special chars", password: "p@ssw0rd!@#$%^&*()"},
		{name: "long password", password: "verylongpasswordwithmorethanfiftycharacters"},
		{name: "minimum length password", password: "short1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Hash(tt.password)
			require.NoError(t, err)
			assert.NotEmpty(t, got)
			assert.NotEqual(t, tt.password, got)
			assert.NoError(t, Compare(got, tt.password))
		})
	}
}

func TestHash_SaltsEveryCall(t *testing.T) {
	first, err := Hash("same_password")
	require.NoError(t, err)
	second, err := Hash("same_password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestCompare(t *testing.T) {
	correctHash, err := Hash("correct_password")
	require.NoError(t, err)
	anotherHash, err := Hash("another_password")
	require.NoError(t, err)

	tests := []struct {
		name        string
		hash        string
		password    string
		shouldMatch bool
	}{
		{name: "matching password", hash: correctHash, password: "correct_password", shouldMatch: true},
		{name: "wrong password", hash: correctHash, password: "wrong_password"},
		{name: "different hash same password", hash: anotherHash, password: "correct_password"},
		{name: "empty password", hash: correctHash, password: ""},
		{name: "garbage hash", hash: "not-a-hash", password: "correct_password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Compare(tt.hash, tt.password)
			if tt.shouldMatch {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestCompareDummy_DoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() { CompareDummy("anything") })
}
