package csvparser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSuppressionRows(t *testing.T) {
	in := "Name,EMAIL,Reason\n" +
		"Dana, Dana@Example.com ,bounce\n" +
		"Sam,,complaint\n" +
		"Lee,not-an-address,bounce\n" +
		"Again,dana@example.com,dup\n" +
		"Short\n" +
		"Kim,kim@example.org,manual\n"

	addrs, invalid, err := ParseSuppressionRows(strings.NewReader(in), 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"dana@example.com", "kim@example.org"}, addrs)
	assert.Equal(t, []InvalidRow{{Line: 4, Value: "not-an-address"}}, invalid)
}

func TestParseSuppressionRowsOnlyEmailColumn(t *testing.T) {
	addrs, invalid, err := ParseSuppressionRows(strings.NewReader("\ufeffemail\na@example.com\nb@example.com\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, addrs)
	assert.Empty(t, invalid)
}

func TestParseSuppressionRowsMaxRows(t *testing.T) {
	addrs, _, err := ParseSuppressionRows(strings.NewReader("Email\na@example.com\nb@example.com\nc@example.com\n"), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, addrs)
}

func TestParseSuppressionRowsErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"empty", "", ErrNoEmailColumn},
		{"no email column", "Name,Reason\nDana,bounce\n", ErrNoEmailColumn},
		{"header only", "Email\n", ErrNoRows},
		{"only invalid", "Email\nnope\n", ErrNoRows},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseSuppressionRows(strings.NewReader(tt.in), 0)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
