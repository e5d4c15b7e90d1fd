package shell

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"gotelnet/internal/session"
)

// builtin binds a command word to its implementation.  The table is
// ordered so help prints deterministically.
type builtin struct {
	name    string
	alias   string // optional second spelling, "" for none
	summary string
	run     func(ctx context.Context, d *Dispatcher, sess *session.Session, args []string) Result
}

// builtins is filled in by init: runHelp walks the table it is listed
// in, which a literal initializer would turn into a dependency cycle.
var builtins []builtin

func init() {
	builtins = []builtin{
		{name: "date", summary: "print the server's local time", run: runDate},
		{name: "echo", summary: "print the arguments back", run: runEcho},
		{name: "help", alias: "?", summary: "list available commands", run: runHelp},
		{name: "quit", alias: "exit", summary: "close this session", run: runQuit},
		{name: "stats", summary: "dump server metrics as JSON", run: runStats},
		{name: "sys", summary: "run a host command (needs --allow-exec)", run: runSys},
		{name: "uptime", summary: "show how long the server has been up", run: runUptime},
		{name: "who", summary: "list connected sessions", run: runWho},
		{name: "whoami", summary: "show this session's identity", run: runWhoami},
	}
}

func runDate(_ context.Context, _ *Dispatcher, _ *session.Session, _ []string) Result {
	return Result{Response: time.Now().Format(time.UnixDate)}
}

func runEcho(_ context.Context, _ *Dispatcher, _ *session.Session, args []string) Result {
	return Result{Response: strings.Join(args, " ")}
}

func runHelp(_ context.Context, _ *Dispatcher, _ *session.Session, _ []string) Result {
	var sb strings.Builder
	sb.WriteString("available commands:\n")
	for _, b := range builtins {
		name := b.name
		if b.alias != "" {
			name += " | " + b.alias
		}
		fmt.Fprintf(&sb, "  %-12s %s\n", name, b.summary)
	}
	return Result{Response: strings.TrimRight(sb.String(), "\n")}
}

func runQuit(_ context.Context, _ *Dispatcher, _ *session.Session, _ []string) Result {
	return Result{Response: "bye.", Terminate: true}
}

func runStats(_ context.Context, d *Dispatcher, _ *session.Session, _ []string) Result {
	return Result{Response: d.metrics.JSON()}
}

func runUptime(_ context.Context, d *Dispatcher, _ *session.Session, _ []string) Result {
	return Result{Response: fmt.Sprintf("up since %s (%s)",
		d.startedAt.Format("2006-01-02 15:04:05 MST"),
		humanize.Time(d.startedAt))}
}

func runWho(_ context.Context, d *Dispatcher, _ *session.Session, _ []string) Result {
	var buf bytes.Buffer

	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"ID", "From", "Connected", "In", "Out", "Lines"})
	table.SetBorder(false)
	table.SetCaption(true, fmt.Sprintf("Total: %d sessions.", d.registry.Len()))
	d.registry.Each(func(s *session.Session) {
		table.Append([]string{
			fmt.Sprintf("%d", s.ID),
			s.RemoteAddr(),
			humanize.Time(s.StartedAt),
			humanize.Bytes(uint64(s.BytesIn())),
			humanize.Bytes(uint64(s.BytesOut())),
			fmt.Sprintf("%d", s.Lines()),
		})
	})
	table.Render()

	return Result{Response: strings.TrimRight(buf.String(), "\n")}
}

func runWhoami(_ context.Context, _ *Dispatcher, sess *session.Session, _ []string) Result {
	return Result{Response: fmt.Sprintf("guest@%s (session %d)", sess.RemoteAddr(), sess.ID)}
}

func runSys(ctx context.Context, d *Dispatcher, _ *session.Session, args []string) Result {
	if !d.allowExec {
		return Result{Response: "sys is disabled. start the server with --allow-exec."}
	}
	if len(args) == 0 {
		return Result{Response: "usage: sys <command>"}
	}

	cmdline := strings.Join(args, " ")

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "cmd.exe", "/C", cmdline)
	} else {
		cmd = exec.CommandContext(ctx, "/bin/sh", "-c", cmdline)
	}

	out, err := cmd.CombinedOutput()
	response := strings.TrimRight(string(out), "\n")
	if err != nil {
		if response != "" {
			response += "\n"
		}
		response += fmt.Sprintf("sys: %v", err)
	}
	return Result{Response: response}
}
