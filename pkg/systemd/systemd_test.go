package systemd

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	logx "watchpost/pkg/logx"
)

func TestNotifyWithoutSocketIsNoop(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	Ready(logx.Nop())
	Stopping(logx.Nop())
}

func TestNotifySendsState(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "notify.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: sock, Net: "unixgram"})
	if err != nil {
		t.Skipf("unixgram not available: %v", err)
	}
	defer conn.Close()
	t.Setenv("NOTIFY_SOCKET", sock)

	read := func() string {
		t.Helper()
		buf := make([]byte, 256)
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		n, err := conn.Read(buf)
		if err != nil {
			t.Fatalf("read notify socket: %v", err)
		}
		return string(buf[:n])
	}

	Ready(logx.Nop())
	if got := read(); got != "READY=1" {
		t.Fatalf("got %q, want READY=1", got)
	}
	Status(logx.Nop(), "next run in 15m")
	if got := read(); got != "STATUS=next run in 15m" {
		t.Fatalf("got %q", got)
	}
	Stopping(logx.Nop())
	if got := read(); got != "STOPPING=1" {
		t.Fatalf("got %q, want STOPPING=1", got)
	}
}
