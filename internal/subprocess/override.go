package subprocess

import "context"

// PathOverrideRunner rewrites argv[0] through a name->path table before
// delegating to an underlying Runner, letting the daemon config point at
// non-PATH installs of tgtadm/lvm2 (spec.md's "external tool names/paths")
// without touching every call site that hardcodes a bare command name.
type PathOverrideRunner struct {
	next  Runner
	paths map[string]string
}

// NewPathOverrideRunner wraps next, rewriting any name found in paths.
func NewPathOverrideRunner(next Runner, paths map[string]string) *PathOverrideRunner {
	return &PathOverrideRunner{next: next, paths: paths}
}

func (r *PathOverrideRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	if override, ok := r.paths[name]; ok && override != "" {
		name = override
	}

	return r.next.Run(ctx, name, args...)
}
