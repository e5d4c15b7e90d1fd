package shell

import (
	"context"
	"encoding/json"
	"runtime"
	"strings"
	"testing"

	"gotelnet/internal/metrics"
	"gotelnet/internal/session"
	"gotelnet/util"
)

func newTestDispatcher(allowExec bool) (*Dispatcher, *session.Registry, *session.Session) {
	reg := session.NewRegistry()
	sess := session.New(nil, nil, nil, util.NewLogger(0))
	reg.Add(sess)
	return NewDispatcher(reg, metrics.New(), allowExec), reg, sess
}

// TestDispatch_Echo verifies arguments are printed back verbatim.
func TestDispatch_Echo(t *testing.T) {
	d, _, sess := newTestDispatcher(false)

	res := d.Dispatch(context.Background(), sess, "echo hello world")
	if res.Response != "hello world" {
		t.Errorf("response = %q, want %q", res.Response, "hello world")
	}
	if res.Terminate {
		t.Error("echo should not terminate the session")
	}
}

// TestDispatch_Date verifies date produces output without terminating.
func TestDispatch_Date(t *testing.T) {
	d, _, sess := newTestDispatcher(false)

	res := d.Dispatch(context.Background(), sess, "date")
	if res.Response == "" {
		t.Error("date should produce output")
	}
	if res.Terminate {
		t.Error("date should not terminate the session")
	}
}

// TestDispatch_Quit verifies quit and its alias drive termination.
func TestDispatch_Quit(t *testing.T) {
	d, _, sess := newTestDispatcher(false)

	for _, cmd := range []string{"quit", "exit", "QUIT"} {
		res := d.Dispatch(context.Background(), sess, cmd)
		if !res.Terminate {
			t.Errorf("%q should terminate the session", cmd)
		}
		if res.Response == "" {
			t.Errorf("%q should say goodbye", cmd)
		}
	}
}

// TestDispatch_Unknown verifies unknown commands point at help.
func TestDispatch_Unknown(t *testing.T) {
	d, _, sess := newTestDispatcher(false)

	res := d.Dispatch(context.Background(), sess, "frobnicate all the things")
	if !strings.Contains(res.Response, "unknown command") {
		t.Errorf("response = %q", res.Response)
	}
	if res.Terminate {
		t.Error("unknown commands should not terminate the session")
	}
}

// TestDispatch_CaseInsensitive verifies the command word ignores case.
func TestDispatch_CaseInsensitive(t *testing.T) {
	d, _, sess := newTestDispatcher(false)

	res := d.Dispatch(context.Background(), sess, "ECHO Mixed Case Kept")
	if res.Response != "Mixed Case Kept" {
		t.Errorf("response = %q (arguments must keep their case)", res.Response)
	}
}

// TestDispatch_EmptyLine verifies a blank line dispatches nothing.
func TestDispatch_EmptyLine(t *testing.T) {
	d, _, sess := newTestDispatcher(false)

	res := d.Dispatch(context.Background(), sess, "   ")
	if res.Response != "" || res.Terminate {
		t.Errorf("blank line should be a no-op, got %+v", res)
	}
}

// TestDispatch_Help verifies every builtin is listed, including help
// itself.
func TestDispatch_Help(t *testing.T) {
	d, _, sess := newTestDispatcher(false)

	res := d.Dispatch(context.Background(), sess, "help")
	for _, name := range []string{"date", "echo", "help", "quit", "stats", "sys", "uptime", "who", "whoami"} {
		if !strings.Contains(res.Response, name) {
			t.Errorf("help does not mention %q", name)
		}
	}
}

// TestDispatch_Whoami verifies the session identity line.
func TestDispatch_Whoami(t *testing.T) {
	d, _, sess := newTestDispatcher(false)

	res := d.Dispatch(context.Background(), sess, "whoami")
	if !strings.Contains(res.Response, "guest@") {
		t.Errorf("response = %q", res.Response)
	}
}

// TestDispatch_Who verifies the session table includes every live
// session.
func TestDispatch_Who(t *testing.T) {
	d, reg, sess := newTestDispatcher(false)
	other := session.New(nil, nil, nil, util.NewLogger(0))
	reg.Add(other)

	res := d.Dispatch(context.Background(), sess, "who")
	if !strings.Contains(res.Response, "Total: 2 sessions.") {
		t.Errorf("missing caption in %q", res.Response)
	}
	if !strings.Contains(res.Response, "1") || !strings.Contains(res.Response, "2") {
		t.Errorf("missing session IDs in %q", res.Response)
	}
}

// TestDispatch_Stats verifies the metrics dump is valid JSON.
func TestDispatch_Stats(t *testing.T) {
	d, _, sess := newTestDispatcher(false)

	res := d.Dispatch(context.Background(), sess, "stats")
	var snap metrics.Snapshot
	if err := json.Unmarshal([]byte(res.Response), &snap); err != nil {
		t.Fatalf("stats is not JSON: %v\n%s", err, res.Response)
	}
}

// TestDispatch_Uptime verifies the uptime report.
func TestDispatch_Uptime(t *testing.T) {
	d, _, sess := newTestDispatcher(false)

	res := d.Dispatch(context.Background(), sess, "uptime")
	if !strings.Contains(res.Response, "up since") {
		t.Errorf("response = %q", res.Response)
	}
}

// TestDispatch_SysDisabled verifies sys refuses without --allow-exec.
func TestDispatch_SysDisabled(t *testing.T) {
	d, _, sess := newTestDispatcher(false)

	res := d.Dispatch(context.Background(), sess, "sys echo pwned")
	if !strings.Contains(res.Response, "disabled") {
		t.Errorf("response = %q", res.Response)
	}
	if strings.Contains(res.Response, "pwned") {
		t.Error("sys ran despite being disabled")
	}
}

// TestDispatch_SysRuns verifies sys executes a host command when
// enabled.
func TestDispatch_SysRuns(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}
	d, _, sess := newTestDispatcher(true)

	res := d.Dispatch(context.Background(), sess, "sys echo from-the-host")
	if res.Response != "from-the-host" {
		t.Errorf("response = %q", res.Response)
	}
}

// TestDispatch_SysUsage verifies sys without arguments prints usage.
func TestDispatch_SysUsage(t *testing.T) {
	d, _, sess := newTestDispatcher(true)

	res := d.Dispatch(context.Background(), sess, "sys")
	if !strings.Contains(res.Response, "usage") {
		t.Errorf("response = %q", res.Response)
	}
}
