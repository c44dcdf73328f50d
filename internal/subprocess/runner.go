// Package subprocess executes external command-line tools and captures their
// output, the way the LVM and tgtadm drivers need it.
package subprocess

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/sirupsen/logrus"
)

// Runner executes an argv vector against the local host and returns the
// captured text, or an empty string and a non-nil error on any non-zero
// exit. Implementations decide whether standard error is merged into
// standard output.
type Runner interface {
	// Run executes name with args and returns combined/standalone output
	// depending on the implementation's merge policy.
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExecRunner shells out via os/exec. MergeStderr controls whether standard
// error is folded into the captured text: tgtadm's well-known negative
// messages ("can't find the target") only show up that way, while LVM
// tools' success strings are expected on stdout alone.
type ExecRunner struct {
	MergeStderr bool
	Log         logrus.FieldLogger
}

// NewExecRunner returns a Runner with the given stderr-merge policy.
func NewExecRunner(mergeStderr bool, log logrus.FieldLogger) *ExecRunner {
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &ExecRunner{MergeStderr: mergeStderr, Log: log}
}

// Run executes the command, logging the invocation at debug level.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if r.MergeStderr {
		cmd.Stderr = &stdout
	}

	r.Log.WithFields(logrus.Fields{"cmd": name, "args": args}).Debug("running external command")

	err := cmd.Run()
	if err != nil {
		return "", err
	}

	return stdout.String(), nil
}
