package cli

import (
	"bytes"
	"io"
)

// Execute runs the command line with args and returns what it wrote to its
// output stream. It's primarily intended for testing purposes
func Execute(args ...string) (output []byte, err error) {
	return ExecuteWithLog(io.Discard, args...)
}

// ExecuteWithLog is Execute with log output sent to logOut.
func ExecuteWithLog(logOut io.Writer, args ...string) (output []byte, err error) {
	// NewCommand resets every flag variable to its default
	cmd := NewCommand()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(logOut)
	cmd.SetArgs(args)

	err = cmd.Execute()

	return buf.Bytes(), err
}
