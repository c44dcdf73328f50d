// Package iscsi wraps tgtadm to model an iSCSI target: existence,
// creation, deletion, LUN attach/detach, session/connection teardown, and
// initiator binding. Every mutating call follows tgtadm's own quiet-on-
// success convention: no output means the operation succeeded.
package iscsi

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nls90/bootd/internal/subprocess"
)

// IQNPrefix is the IQN naming authority this control plane uses for every
// target it creates. The daemon config overrides it at startup; tests and
// callers that never touch config keep this default.
var IQNPrefix = "iqn.2018-01.com.nls90.iscsitarget"

// QualifiedName returns the wire IQN for a target named name.
func QualifiedName(name string) string {
	return fmt.Sprintf("%s:%s", IQNPrefix, name)
}

// Target is a handle to one tgtadm target, identified by its numeric tid.
type Target struct {
	run  subprocess.Runner
	tid  string
	name string
}

// New returns a Target handle for tid/name. It performs no I/O.
func New(run subprocess.Runner, tid int, name string) *Target {
	return &Target{run: run, tid: strconv.Itoa(tid), name: QualifiedName(name)}
}

// Name returns the target's wire IQN.
func (t *Target) Name() string {
	return t.name
}

func (t *Target) exec(ctx context.Context, mode string, args ...string) (string, error) {
	full := append([]string{"--lld", "iscsi", "--mode", mode}, args...)
	return t.run.Run(ctx, "tgtadm", full...)
}

// quietSuccess implements tgtadm's convention: no output on success.
func quietSuccess(output string, err error) (bool, error) {
	if err != nil {
		return false, err
	}

	return strings.TrimSpace(output) == "", nil
}

// Exists reports whether the target is registered with the daemon.
func (t *Target) Exists(ctx context.Context) (bool, error) {
	output, err := t.exec(ctx, "target", "--op", "show", "--tid", t.tid)
	if err != nil {
		return false, fmt.Errorf("tgtadm show --tid %s: %w", t.tid, err)
	}

	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return false, nil
	}

	if strings.Contains(trimmed, "can't find the target") {
		return false, nil
	}

	return true, nil
}

// Add registers the target with the daemon.
func (t *Target) Add(ctx context.Context) error {
	output, err := t.exec(ctx, "target", "--op", "new", "--tid", t.tid, "--targetname", t.name)
	ok, qerr := quietSuccess(output, err)
	if qerr != nil {
		return fmt.Errorf("tgtadm new --tid %s: %w", t.tid, qerr)
	}

	if !ok {
		return fmt.Errorf("tgtadm new --tid %s: unexpected output: %s", t.tid, output)
	}

	return nil
}

// Remove deletes the target from the daemon.
func (t *Target) Remove(ctx context.Context) error {
	output, err := t.exec(ctx, "target", "--op", "delete", "--tid", t.tid, "--force")
	ok, qerr := quietSuccess(output, err)
	if qerr != nil {
		return fmt.Errorf("tgtadm delete --tid %s: %w", t.tid, qerr)
	}

	if !ok {
		return fmt.Errorf("tgtadm delete --tid %s: unexpected output: %s", t.tid, output)
	}

	return nil
}

var lunLine = regexp.MustCompile(`^LUN:\s*(\d+)$`)
var backingLine = regexp.MustCompile(`^Backing store path:\s*(.*)$`)
var targetHeader = regexp.MustCompile(`^Target\s+\d+:`)

// ListActiveLogicalUnits returns the LUN-id -> backing-path mapping for
// this target, restricted to LUNs whose id is strictly positive (LUN 0 is
// the daemon's own controller) and whose backing path begins with /dev/.
func (t *Target) ListActiveLogicalUnits(ctx context.Context) (map[int]string, error) {
	output, err := t.exec(ctx, "target", "--op", "show", "--tid", t.tid)
	if err != nil {
		return nil, fmt.Errorf("tgtadm show --tid %s: %w", t.tid, err)
	}

	luns := map[int]string{}

	var curLUN int
	haveLUN := false

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)

		if m := lunLine.FindStringSubmatch(line); m != nil {
			curLUN, _ = strconv.Atoi(m[1])
			haveLUN = true
			continue
		}

		if m := backingLine.FindStringSubmatch(line); m != nil && haveLUN {
			path := strings.TrimSpace(m[1])
			if curLUN > 0 && strings.HasPrefix(path, "/dev/") {
				luns[curLUN] = path
			}

			haveLUN = false
		}
	}

	return luns, nil
}

// GetLogicalUnitNumber returns the LUN id currently bound to devicePath, if any.
func (t *Target) GetLogicalUnitNumber(ctx context.Context, devicePath string) (int, bool, error) {
	luns, err := t.ListActiveLogicalUnits(ctx)
	if err != nil {
		return 0, false, err
	}

	for lun, path := range luns {
		if path == devicePath {
			return lun, true, nil
		}
	}

	return 0, false, nil
}

// AttachLogicalUnit binds a backing path to the given LUN id.
func (t *Target) AttachLogicalUnit(ctx context.Context, path string, lun int) error {
	output, err := t.exec(ctx, "logicalunit",
		"--op", "new", "--tid", t.tid,
		"--lun", strconv.Itoa(lun),
		"--backing-store", path,
	)
	ok, qerr := quietSuccess(output, err)
	if qerr != nil {
		return fmt.Errorf("tgtadm new lun %d on tid %s: %w", lun, t.tid, qerr)
	}

	if !ok {
		return fmt.Errorf("tgtadm new lun %d on tid %s: unexpected output: %s", lun, t.tid, output)
	}

	return nil
}

// DetachLogicalUnit unbinds the given LUN id.
func (t *Target) DetachLogicalUnit(ctx context.Context, lun int) error {
	output, err := t.exec(ctx, "logicalunit", "--op", "delete", "--tid", t.tid, "--lun", strconv.Itoa(lun))
	ok, qerr := quietSuccess(output, err)
	if qerr != nil {
		return fmt.Errorf("tgtadm delete lun %d on tid %s: %w", lun, t.tid, qerr)
	}

	if !ok {
		return fmt.Errorf("tgtadm delete lun %d on tid %s: unexpected output: %s", lun, t.tid, output)
	}

	return nil
}

// DetachAllLogicalUnits detaches every currently attached LUN.
func (t *Target) DetachAllLogicalUnits(ctx context.Context) error {
	luns, err := t.ListActiveLogicalUnits(ctx)
	if err != nil {
		return err
	}

	for lun := range luns {
		if err := t.DetachLogicalUnit(ctx, lun); err != nil {
			return err
		}
	}

	return nil
}

// UpdateLogicalUnitParams updates SCSI vendor/product metadata for a LUN.
func (t *Target) UpdateLogicalUnitParams(ctx context.Context, lun int, vendorID, productID, productRev string) error {
	var params []string
	if vendorID != "" {
		params = append(params, "vendor_id="+vendorID)
	}

	if productID != "" {
		params = append(params, "product_id="+productID)
	}

	if productRev != "" {
		params = append(params, "product_rev="+productRev)
	}

	if len(params) == 0 {
		return nil
	}

	output, err := t.exec(ctx, "logicalunit",
		"--op", "update", "--tid", t.tid,
		"--lun", strconv.Itoa(lun),
		"--params", strings.Join(params, ","),
	)
	ok, qerr := quietSuccess(output, err)
	if qerr != nil {
		return fmt.Errorf("tgtadm update lun %d on tid %s: %w", lun, t.tid, qerr)
	}

	if !ok {
		return fmt.Errorf("tgtadm update lun %d on tid %s: unexpected output: %s", lun, t.tid, output)
	}

	return nil
}

// Connections maps initiator IP -> session id -> set of connection ids.
type Connections map[string]map[string]map[string]bool

var connIPLine = regexp.MustCompile(`^IP Address:\s*(\S+)`)
var connSessionLine = regexp.MustCompile(`^Session:\s*(\S+)`)
var connConnLine = regexp.MustCompile(`^Connection:\s*(\S+)`)

// ListConnections parses `--mode conn --op show`, optionally filtered to a
// single initiator IP.
func (t *Target) ListConnections(ctx context.Context, initiatorIP string) (Connections, error) {
	output, err := t.exec(ctx, "conn", "--op", "show", "--tid", t.tid)
	if err != nil {
		return nil, fmt.Errorf("tgtadm conn show --tid %s: %w", t.tid, err)
	}

	conns := Connections{}

	var curSession, curIP string

	for _, raw := range strings.Split(output, "\n") {
		line := strings.TrimSpace(raw)

		if m := connSessionLine.FindStringSubmatch(line); m != nil {
			curSession = m[1]
			continue
		}

		if m := connIPLine.FindStringSubmatch(line); m != nil {
			curIP = m[1]
			continue
		}

		if m := connConnLine.FindStringSubmatch(line); m != nil {
			if initiatorIP != "" && curIP != initiatorIP {
				continue
			}

			if conns[curIP] == nil {
				conns[curIP] = map[string]map[string]bool{}
			}

			if conns[curIP][curSession] == nil {
				conns[curIP][curSession] = map[string]bool{}
			}

			conns[curIP][curSession][m[1]] = true
		}
	}

	return conns, nil
}

// CloseConnection tears down a single session/connection pair.
func (t *Target) CloseConnection(ctx context.Context, sessionID, connectionID string) error {
	output, err := t.exec(ctx, "conn",
		"--op", "delete", "--tid", t.tid,
		"--sid", sessionID, "--cid", connectionID,
	)
	ok, qerr := quietSuccess(output, err)
	if qerr != nil {
		return fmt.Errorf("tgtadm conn delete sid=%s cid=%s: %w", sessionID, connectionID, qerr)
	}

	if !ok {
		return fmt.Errorf("tgtadm conn delete sid=%s cid=%s: unexpected output: %s", sessionID, connectionID, output)
	}

	return nil
}

// CloseInitiatorConnections closes every connection held by initiatorIP.
func (t *Target) CloseInitiatorConnections(ctx context.Context, initiatorIP string) error {
	conns, err := t.ListConnections(ctx, initiatorIP)
	if err != nil {
		return err
	}

	for _, sessions := range conns {
		for sid, cids := range sessions {
			for cid := range cids {
				if err := t.CloseConnection(ctx, sid, cid); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

// CloseAllConnections closes every connection on this target.
func (t *Target) CloseAllConnections(ctx context.Context) error {
	return t.CloseInitiatorConnections(ctx, "")
}

// BindToInitiator binds the target to an initiator by address or name; an
// empty initiator binds the wildcard ALL.
func (t *Target) BindToInitiator(ctx context.Context, initiator string, by string) error {
	return t.bindOrUnbind(ctx, "bind", initiator, by)
}

// UnbindFromInitiator reverses BindToInitiator.
func (t *Target) UnbindFromInitiator(ctx context.Context, initiator string, by string) error {
	return t.bindOrUnbind(ctx, "unbind", initiator, by)
}

func (t *Target) bindOrUnbind(ctx context.Context, op, initiator, by string) error {
	if by != "address" && by != "name" {
		by = "address"
	}

	value := initiator
	if value == "" {
		value = "ALL"
	}

	output, err := t.exec(ctx, "target", "--op", op, "--tid", t.tid, "--initiator-"+by, value)
	ok, qerr := quietSuccess(output, err)
	if qerr != nil {
		return fmt.Errorf("tgtadm %s --tid %s: %w", op, t.tid, qerr)
	}

	if !ok {
		return fmt.Errorf("tgtadm %s --tid %s: unexpected output: %s", op, t.tid, output)
	}

	return nil
}
