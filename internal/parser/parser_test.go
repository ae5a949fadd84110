package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSimpleCommand(t *testing.T) {
	p := Split("ls -la /tmp")
	require.Len(t, p.Stages, 1)
	assert.Equal(t, []string{"ls", "-la", "/tmp"}, p.Stages[0].Args)
	assert.False(t, p.Background)
	assert.Equal(t, BuiltinNone, p.Stages[0].Builtin)
	assert.Equal(t, "ls -la /tmp", p.Line)
}

func TestSplitRedirections(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		args    []string
		infile  string
		outfile string
		appnd   bool
	}{
		{"input", "cat < in.txt", []string{"cat"}, "in.txt", "", false},
		{"truncate", "ls > out.txt", []string{"ls"}, "", "out.txt", false},
		{"append", "ls >> out.txt", []string{"ls"}, "", "out.txt", true},
		{"both", "sort < a.txt > b.txt", []string{"sort"}, "a.txt", "b.txt", false},
		{"interleaved", "grep -v x < a > b", []string{"grep", "-v", "x"}, "a", "b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Split(tt.line)
			require.Len(t, p.Stages, 1)
			cmd := p.Stages[0]
			assert.Equal(t, tt.args, cmd.Args)
			assert.Equal(t, tt.infile, cmd.Infile)
			assert.Equal(t, tt.outfile, cmd.Outfile)
			assert.Equal(t, tt.appnd, cmd.Append)
		})
	}
}

// A redirection operator with no filename is dropped, not an error.
func TestSplitDanglingRedirection(t *testing.T) {
	p := Split("ls >")
	require.Len(t, p.Stages, 1)
	assert.Equal(t, []string{"ls"}, p.Stages[0].Args)
	assert.Empty(t, p.Stages[0].Outfile)

	p = Split("cat <")
	require.Len(t, p.Stages, 1)
	assert.Empty(t, p.Stages[0].Infile)
}

func TestSplitPipeline(t *testing.T) {
	p := Split("cat access.log | grep error | wc -l")
	require.Len(t, p.Stages, 3)
	assert.Equal(t, []string{"cat", "access.log"}, p.Stages[0].Args)
	assert.Equal(t, []string{"grep", "error"}, p.Stages[1].Args)
	assert.Equal(t, []string{"wc", "-l"}, p.Stages[2].Args)
}

func TestSplitBackground(t *testing.T) {
	p := Split("sleep 100 &")
	assert.True(t, p.Background)
	require.Len(t, p.Stages, 1)
	assert.Equal(t, []string{"sleep", "100"}, p.Stages[0].Args)

	p = Split("producer | consumer &")
	assert.True(t, p.Background)
	assert.Len(t, p.Stages, 2)

	p = Split("sleep 100&")
	assert.True(t, p.Background)
	assert.Equal(t, []string{"sleep", "100"}, p.Stages[0].Args)
}

func TestSplitEmptySegmentsSkipped(t *testing.T) {
	p := Split("ls | | wc")
	assert.Len(t, p.Stages, 2)

	p = Split("   ")
	assert.Empty(t, p.Stages)
}

func TestSplitBuiltinTags(t *testing.T) {
	for name, want := range map[string]Builtin{
		"cd":      BuiltinCd,
		"pwd":     BuiltinPwd,
		"exit":    BuiltinExit,
		"jobs":    BuiltinJobs,
		"fg":      BuiltinFg,
		"bg":      BuiltinBg,
		"kill":    BuiltinKill,
		"history": BuiltinHistory,
	} {
		p := Split(name + " arg")
		require.Len(t, p.Stages, 1)
		assert.Equal(t, want, p.Stages[0].Builtin, name)
	}
}

// Builtins inside a pipeline are not tagged; they run as external lookups.
func TestSplitBuiltinMidPipelineNotTagged(t *testing.T) {
	p := Split("echo x | cd /tmp")
	require.Len(t, p.Stages, 2)
	assert.Equal(t, BuiltinNone, p.Stages[0].Builtin)
	assert.Equal(t, BuiltinNone, p.Stages[1].Builtin)
}

func TestSplitStageCap(t *testing.T) {
	line := strings.Repeat("cat | ", MaxStages+5) + "cat"
	p := Split(line)
	assert.Len(t, p.Stages, MaxStages)
}
