package distributed

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"k8s.io/utils/exec"
)

// NoopBinder binds nothing, for CPU runs.
type NoopBinder struct{}

func (NoopBinder) Bind(int) error { return nil }

// NVIDIABinder checks that the GPU of the local rank is present.
type NVIDIABinder struct {
	exec    exec.Interface
	devRoot string

	// Device is the bound GPU index, -1 before Bind.
	Device int
}

// NewNVIDIABinder returns a binder that looks for "/dev/nvidia<local-rank>"
// and falls back to "nvidia-smi -L".
func NewNVIDIABinder() *NVIDIABinder {
	return &NVIDIABinder{exec: exec.New(), devRoot: "/dev", Device: -1}
}

// Bind binds the GPU with the index of the local rank.
func (b *NVIDIABinder) Bind(localRank int) error {
	if localRank < 0 {
		return fmt.Errorf("invalid local rank %d", localRank)
	}
	if _, err := os.Stat(filepath.Join(b.devRoot, "nvidia"+strconv.Itoa(localRank))); err == nil {
		b.Device = localRank
		return nil
	}

	n, err := b.countGPUs()
	if err != nil {
		return err
	}
	if localRank >= n {
		return fmt.Errorf("local rank %d needs GPU %d, found %d GPU(s)", localRank, localRank, n)
	}
	b.Device = localRank
	return nil
}

// VisibleDevices returns the "CUDA_VISIBLE_DEVICES" entry for child processes.
func (b *NVIDIABinder) VisibleDevices() string {
	if b.Device < 0 {
		return ""
	}
	return "CUDA_VISIBLE_DEVICES=" + strconv.Itoa(b.Device)
}

// countGPUs counts the "GPU <index>: <name> (UUID: ...)" lines of "nvidia-smi -L".
func (b *NVIDIABinder) countGPUs() (int, error) {
	smi, err := b.exec.LookPath("nvidia-smi")
	if err != nil {
		return 0, fmt.Errorf("no NVIDIA device found (%v)", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	output, err := b.exec.CommandContext(ctx, smi, "-L").CombinedOutput()
	cancel()
	if err != nil {
		return 0, fmt.Errorf("'nvidia-smi -L' failed %q (%v)", strings.TrimSpace(string(output)), err)
	}
	n := 0
	for _, line := range strings.Split(string(output), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "GPU ") {
			n++
		}
	}
	return n, nil
}
