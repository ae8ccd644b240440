package encoding

import (
	"context"
	"os/exec"
)

// SetCommandContextForTests swaps the process builder and returns a restore func.
func SetCommandContextForTests(fn func(context.Context, string, ...string) *exec.Cmd) func() {
	previous := commandContext
	commandContext = fn
	return func() { commandContext = previous }
}
