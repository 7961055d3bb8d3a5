package envfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchForms(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    bool
	}{
		{"ANYTHING", "*", true},
		{"DB_HOST", "DB_*", true},
		{"API_HOST", "DB_*", false},
		{"MY_TOKEN", "*TOKEN", true},
		{"TOKEN_V2", "*TOKEN", false},
		{"AWS_SECRET_ACCESS_KEY", "*SECRET*", true},
		{"SECRET", "*SECRET*", true},
		{"HARMLESS", "*SECRET*", false},
		{"HOME", "HOME", true},
		{"HOMEDIR", "HOME", false},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.pattern, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.name, tt.pattern))
		})
	}
}

func TestFilterDenyWins(t *testing.T) {
	environ := []string{"DB_SECRET=hunter2", "DB_HOST=localhost"}
	got := Filter(environ, []string{"*"}, []string{"*_SECRET"})
	assert.Equal(t, []string{"DB_HOST=localhost"}, got)
}

func TestFilterRequiresAllowMatch(t *testing.T) {
	environ := []string{"HOME=/home/u", "RANDOM_VAR=1"}
	got := Filter(environ, []string{"HOME"}, nil)
	assert.Equal(t, []string{"HOME=/home/u"}, got)
}

func TestFilterEmptyDenyDisablesDenying(t *testing.T) {
	environ := []string{"GITHUB_TOKEN=abc", "USER=u"}

	withDefaults := Filter(environ, []string{"*"}, DefaultDenyPatterns)
	assert.Equal(t, []string{"USER=u"}, withDefaults)

	disabled := Filter(environ, []string{"*"}, nil)
	assert.Equal(t, []string{"GITHUB_TOKEN=abc", "USER=u"}, disabled)
}

func TestFilterDefaultPolicy(t *testing.T) {
	environ := []string{
		"USER=alice",
		"HOME=/home/alice",
		"MY_API_KEY=xyz",
		"DATABASE_PASSWORD=pw",
		"SOME_RANDOM=1",
	}
	got := Filter(environ, DefaultAllowPatterns, DefaultDenyPatterns)
	assert.Equal(t, []string{"HOME=/home/alice", "USER=alice"}, got)
}

func TestFilterSortsAndSkipsMalformedEntries(t *testing.T) {
	environ := []string{"B=2", "malformed-entry", "A=1"}
	got := Filter(environ, []string{"*"}, nil)
	assert.Equal(t, []string{"A=1", "B=2"}, got)
}
