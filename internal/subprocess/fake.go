package subprocess

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// FakeRunner is a scriptable Runner for tests: callers register a response
// (or error) for an exact argv, and FakeRunner replays it and records every
// invocation for assertions.
type FakeRunner struct {
	mu    sync.Mutex
	calls []Call
	resp  map[string]response
}

// Call is one recorded invocation.
type Call struct {
	Name string
	Args []string
}

type response struct {
	output string
	err    error
}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{resp: make(map[string]response)}
}

func key(name string, args []string) string {
	return name + "\x00" + strings.Join(args, "\x00")
}

// Script registers the output FakeRunner returns for an exact argv.
func (f *FakeRunner) Script(output string, name string, args ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resp[key(name, args)] = response{output: output}
}

// ScriptError registers an error FakeRunner returns for an exact argv.
func (f *FakeRunner) ScriptError(err error, name string, args ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resp[key(name, args)] = response{err: err}
}

// Run implements Runner.
func (f *FakeRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Name: name, Args: append([]string(nil), args...)})

	r, ok := f.resp[key(name, args)]
	if !ok {
		return "", fmt.Errorf("subprocess: unscripted call: %s %s", name, strings.Join(args, " "))
	}

	return r.output, r.err
}

// Calls returns every recorded invocation in order.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
