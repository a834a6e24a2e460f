package process

import (
	"testing"
	"time"

	"github.com/quantumlauncher/qlcore/internal/launch"
)

func TestStopHardKillsClassicServerWithoutGraceCommand(t *testing.T) {
	reg := NewRegistry(nil)
	cmd := &launch.Command{JavaBin: "cat", Dir: t.TempDir()}
	h, err := reg.Spawn("classic", cmd, true, true, true, nil)
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	start := time.Now()
	if err := reg.Stop("classic", 5*time.Second, false); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= 5*time.Second {
		t.Errorf("classic server should be hard-killed immediately, took %s (grace period was 5s)", elapsed)
	}
	if h.HasIssuedStopCommand() {
		t.Errorf("a classic server has no stop console command; none should have been issued")
	}
}

func TestStopSendsGracefulCommandToModernServer(t *testing.T) {
	reg := NewRegistry(nil)
	cmd := &launch.Command{JavaBin: "cat", Dir: t.TempDir()}
	h, err := reg.Spawn("modern", cmd, true, false, true, nil)
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}

	if err := reg.Stop("modern", 50*time.Millisecond, false); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if !h.HasIssuedStopCommand() {
		t.Errorf("expected a modern server to receive the graceful stop command before being hard-killed")
	}
}
