package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"single string", []string{"-p 1-10:30 http://example.com"}, "-p 1-10:30 http://example.com"},
		{"plain words", []string{"-X", "GET", "http://example.com"}, "-X GET http://example.com"},
		{"spaced value", []string{"-A", "Mozilla Firefox", "http://example.com"}, `-A "Mozilla Firefox" http://example.com`},
		{"embedded quote", []string{"-d", `{"a":1}`, "http://example.com"}, `-d "{\"a\":1}" http://example.com`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, joinArgs(tt.args))
		})
	}
}

func TestRootFlags_LeaveCommandShorthandsFree(t *testing.T) {
	for _, short := range []string{"p", "v"} {
		assert.Nil(t, rootCmd.PersistentFlags().ShorthandLookup(short), "-%s", short)
		assert.Nil(t, rootCmd.Flags().ShorthandLookup(short), "-%s", short)
	}
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("profile"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
}
