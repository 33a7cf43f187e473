package logutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// NewWithStderrWriter creates a new logger and multi-writer with os.Stderr,
// or os.Stdout when "stdout" is given without "stderr".
// The returned file object is the log file, nil when no ".log" output is given.
// If the logOutputs is "stderr", it just returns the os.Stderr.
func NewWithStderrWriter(logLevel string, logOutputs []string) (lg *zap.Logger, wr io.Writer, logFile *os.File, err error) {
	lvl, err := ParseLevel(logLevel)
	if err != nil {
		return nil, nil, nil, err
	}

	lcfg := GetDefaultZapLoggerConfig()
	wr = consoleWriter(logOutputs)
	if len(logOutputs) == 1 && strings.ToLower(logOutputs[0]) == "stdout" {
		lcfg.OutputPaths = []string{"stdout"}
	}
	if len(logOutputs) > 1 {
		logFilePath := ""
		for _, fpath := range logOutputs {
			if filepath.Ext(fpath) == ".log" {
				logFilePath = fpath
				break
			}
		}
		if logFilePath == "" {
			return nil, nil, nil, fmt.Errorf(".log file not found %v", logOutputs)
		}
		logFile, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] failed to open log file %q (%v) -- ignoring log file\n", logFilePath, err)
			logFile = nil
		} else {
			wr = io.MultiWriter(wr, logFile)
			lcfg = AddOutputPaths(lcfg, logOutputs, logOutputs)
		}
	}

	lcfg.Level = zap.NewAtomicLevelAt(lvl)
	lg, err = lcfg.Build()
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, nil, nil, err
	}
	return lg, wr, logFile, nil
}

// consoleWriter returns os.Stdout when "stdout" is an output and "stderr" is not.
func consoleWriter(logOutputs []string) io.Writer {
	stdout := false
	for _, o := range logOutputs {
		switch strings.ToLower(o) {
		case "stderr":
			return os.Stderr
		case "stdout":
			stdout = true
		}
	}
	if stdout {
		return os.Stdout
	}
	return os.Stderr
}
