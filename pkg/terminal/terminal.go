// Package terminal implements terminal related utilities.
package terminal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"k8s.io/utils/exec"
)

// MinColors is the number of colors "tput colors" must report.
const MinColors = 8

// IsColor returns an error if current terminal does not support color output.
func IsColor() (string, error) {
	return isColor(exec.New())
}

func isColor(ex exec.Interface) (string, error) {
	tputPath, err := ex.LookPath("tput")
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	output, err := ex.CommandContext(ctx, tputPath, "colors").CombinedOutput()
	cancel()
	out := strings.TrimSpace(string(output))
	if err != nil {
		return out, err
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return out, fmt.Errorf("unexpected 'tput colors' output %q (%v)", out, err)
	}
	if n < MinColors {
		return out, fmt.Errorf("terminal reports %d colors, want at least %d", n, MinColors)
	}
	return out, nil
}
