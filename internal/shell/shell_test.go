package shell

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExecCapturesOutputAndExitCode(t *testing.T) {
	e := Exec{}

	out := e.Run(context.Background(), "echo hello")
	assert.True(t, out.Ok())
	assert.Equal(t, "hello", out.Output)

	out = e.Run(context.Background(), "echo oops >&2; exit 3")
	assert.False(t, out.Ok())
	assert.Equal(t, 3, out.ExitCode)
	assert.Equal(t, "oops", out.Output)
}

func TestTailTruncatesLongOutput(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}

	tail := Tail(b.String())
	assert.Contains(t, tail, "...(truncated)...")
	assert.Contains(t, tail, "line 199")
	assert.NotContains(t, tail, "line 10\n")
}

func TestTailKeepsShortOutput(t *testing.T) {
	assert.Equal(t, "one\ntwo", Tail("one\ntwo\n"))
}
