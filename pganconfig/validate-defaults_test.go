package pganconfig

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidateStartChannelSize(t *testing.T) {
	// max_imsize = 2^i, start_channel_size = 2^j
	for i := 2; i <= 12; i++ {
		for j := 0; j <= 12; j++ {
			err := ValidateStartChannelSize(1<<uint(i), 1<<uint(j))
			want := i-2 < j+2
			if (err == nil) != want {
				t.Fatalf("max_imsize %d, start_channel_size %d: expected valid %v, got %v", 1<<uint(i), 1<<uint(j), want, err)
			}
			if err != nil && !errors.Is(err, ErrInvalidStartChannelSize) {
				t.Fatalf("unexpected error %v", err)
			}
		}
	}
}

func TestValidateStartChannelSizeExamples(t *testing.T) {
	tests := []struct {
		max, start int
		ok         bool
	}{
		{128, 256, true},
		{128, 16, true},
		{128, 8, false},
		{1024, 128, true},
		{1024, 64, false},
		{128, 0, false},
		{0, 256, false},
	}
	for i, tv := range tests {
		err := ValidateStartChannelSize(tv.max, tv.start)
		if (err == nil) != tv.ok {
			t.Fatalf("#%d: unexpected error %v", i, err)
		}
	}
}

func TestValidateOptLevel(t *testing.T) {
	for _, lvl := range []string{"O0", "O1"} {
		if err := ValidateOptLevel(lvl); err != nil {
			t.Fatalf("%q: %v", lvl, err)
		}
	}
	for _, lvl := range []string{"O2", "O3", "o1", "", "O1 "} {
		err := ValidateOptLevel(lvl)
		if !errors.Is(err, ErrInvalidOptLevel) {
			t.Fatalf("%q: unexpected error %v", lvl, err)
		}
		if err.Error() != "optimization level not correct. It was: "+lvl {
			t.Fatalf("%q: unexpected message %q", lvl, err.Error())
		}
	}
}

func TestValidateAndSetDefaults(t *testing.T) {
	cfg := NewDefault(fixedName("otter"))
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if cfg.CheckpointDir != filepath.Join("checkpoints", "otter") {
		t.Fatalf("unexpected checkpoint dir %q", cfg.CheckpointDir)
	}
	if cfg.GeneratedDataDir != filepath.Join("generated_data", "otter") {
		t.Fatalf("unexpected generated data dir %q", cfg.GeneratedDataDir)
	}
	if cfg.SummariesDir != filepath.Join("summaries", "otter") {
		t.Fatalf("unexpected summaries dir %q", cfg.SummariesDir)
	}
	if cfg.ConfigPath != filepath.Join("options", "otter.yaml") {
		t.Fatalf("unexpected config path %q", cfg.ConfigPath)
	}
	if len(cfg.LogOutputs) != 2 || cfg.LogOutputs[1] != filepath.Join("options", "otter.log") {
		t.Fatalf("unexpected log outputs %v", cfg.LogOutputs)
	}
	// pure, no directories are created
	if _, err := os.Stat(cfg.ConfigPath); err == nil {
		t.Fatalf("unexpected file %q", cfg.ConfigPath)
	}
}

func TestValidateAndSetDefaultsErrors(t *testing.T) {
	tests := []struct {
		name       string
		update     func(cfg *Config)
		errContain string
		sentinel   error
	}{
		{"channel", func(cfg *Config) { cfg.StartChannelSize = 8 }, "start channel size", ErrInvalidStartChannelSize},
		{"opt-level", func(cfg *Config) { cfg.OptLevel = "O2" }, "It was: O2", ErrInvalidOptLevel},
		{"batch-size", func(cfg *Config) { cfg.BatchSize = BatchSchedule{4: 1} }, "expected 9 entries, got 1", ErrBatchScheduleLength},
		{"empty-name", func(cfg *Config) { cfg.ModelName = "" }, "empty model_name", nil},
		{"path-name", func(cfg *Config) { cfg.ModelName = "../otter" }, "must not be a path", nil},
		{"n-critic", func(cfg *Config) { cfg.NCritic = 0 }, "n_critic", nil},
		{"num-epochs", func(cfg *Config) { cfg.NumEpochs = -1 }, "num_epochs", nil},
		{"transition-iters", func(cfg *Config) { cfg.TransitionIters = 0 }, "transition_iters", nil},
		{"pose-size", func(cfg *Config) { cfg.PoseSize = -1 }, "pose_size", nil},
		{"learning-rate", func(cfg *Config) { cfg.LearningRate = 0 }, "learning_rate", nil},
		{"decay", func(cfg *Config) { cfg.RunningAverageGeneratorDecay = 1.5 }, "running_average_generator_decay", nil},
		{"local-rank", func(cfg *Config) { cfg.LocalRank = -1 }, "local_rank", nil},
		{"imsize", func(cfg *Config) { cfg.Imsize = 6 }, "imsize 6 not in", nil},
		{"max-imsize", func(cfg *Config) { cfg.MaxImsize = 2048; cfg.StartChannelSize = 1024 }, "max_imsize 2048 not in", nil},
		{"imsize-order", func(cfg *Config) { cfg.Imsize = 256 }, "larger than max_imsize", nil},
		{"log-level", func(cfg *Config) { cfg.LogLevel = "trace" }, "log_level", nil},
	}
	for _, tv := range tests {
		t.Run(tv.name, func(t *testing.T) {
			cfg := NewDefault(fixedName("otter"))
			tv.update(cfg)
			err := cfg.ValidateAndSetDefaults()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tv.errContain) {
				t.Fatalf("expected %q in %q", tv.errContain, err.Error())
			}
			if !strings.HasPrefix(err.Error(), "validateConfig failed") {
				t.Fatalf("unexpected error %q", err.Error())
			}
			if cfg.CheckpointDir != "" {
				t.Fatalf("unexpected derived dir %q", cfg.CheckpointDir)
			}
			if tv.sentinel != nil && !errors.Is(err, tv.sentinel) {
				t.Fatalf("expected %v, got %v", tv.sentinel, err)
			}
		})
	}
}

func TestValidateAndSetDefaultsFillsEmpty(t *testing.T) {
	cfg := &Config{
		ModelName:                    "otter",
		NCritic:                      1,
		LearningRate:                 0.001,
		NumEpochs:                    1,
		Imsize:                       4,
		MaxImsize:                    64,
		StartChannelSize:             128,
		TransitionIters:              10,
		RunningAverageGeneratorDecay: 1,
		OptLevel:                     "O0",
	}
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if cfg.BatchSize.String() != DefaultBatchSize {
		t.Fatalf("unexpected batch size %q", cfg.BatchSize)
	}
	if cfg.Dataset != DefaultDataset || cfg.DiscriminatorModel != DefaultDiscriminatorModel {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.OptionsDir != DefaultOptionsDir || cfg.LogLevel != "info" || cfg.WorldSize != 1 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if len(cfg.LogOutputs) != 2 || cfg.LogOutputs[0] != "stderr" {
		t.Fatalf("unexpected log outputs %v", cfg.LogOutputs)
	}
}

func TestEnsureDirs(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg := NewDefault(fixedName("otter"))
	if err := cfg.EnsureDirs(); err == nil {
		t.Fatal("expected error before ValidateAndSetDefaults")
	}
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := cfg.EnsureDirs(); err != nil {
			t.Fatalf("#%d: %v", i, err)
		}
		for _, dir := range []string{"options", filepath.Join("checkpoints", "otter"), filepath.Join("generated_data", "otter")} {
			fi, err := os.Stat(dir)
			if err != nil || !fi.IsDir() {
				t.Fatalf("#%d: %q not created (%v)", i, dir, err)
			}
		}
		if _, err := os.Stat(filepath.Join("summaries", "otter")); !os.IsNotExist(err) {
			t.Fatalf("#%d: summaries dir should not be created (%v)", i, err)
		}
	}
	if err := cfg.Sync(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join("options", "otter.yaml")); err != nil {
		t.Fatal(err)
	}
}

func TestRankPath(t *testing.T) {
	tests := []struct {
		p         string
		localRank int
		want      string
	}{
		{"options/otter.yaml", 0, "options/otter.yaml"},
		{"options/otter.yaml", 1, "options/otter.rank1.yaml"},
		{"options/otter.rank1.yaml", 1, "options/otter.rank1.yaml"},
		{"options/otter.yaml", 12, "options/otter.rank12.yaml"},
		{"otter", 3, "otter.rank3"},
	}
	for i, tv := range tests {
		if got := RankPath(tv.p, tv.localRank); got != tv.want {
			t.Fatalf("#%d: expected %q, got %q", i, tv.want, got)
		}
	}
}

func TestLocalRanksWriteSeparateFiles(t *testing.T) {
	t.Chdir(t.TempDir())

	cfgs := make([]*Config, 2)
	for rank := range cfgs {
		cfg := NewDefault(fixedName("otter"))
		cfg.LocalRank = rank
		if err := cfg.ValidateAndSetDefaults(); err != nil {
			t.Fatal(err)
		}
		if err := cfg.EnsureDirs(); err != nil {
			t.Fatal(err)
		}
		cfgs[rank] = cfg
	}
	// rank 1 writes last
	for _, cfg := range cfgs {
		if err := cfg.Sync(); err != nil {
			t.Fatal(err)
		}
	}
	if cfgs[0].ConfigPath == cfgs[1].ConfigPath {
		t.Fatalf("ranks share the options file %q", cfgs[0].ConfigPath)
	}
	if !strings.HasSuffix(cfgs[1].ConfigPath, filepath.Join("options", "otter.rank1.yaml")) {
		t.Fatalf("unexpected config path %q", cfgs[1].ConfigPath)
	}
	if cfgs[1].LogOutputs[1] != filepath.Join("options", "otter.rank1.log") {
		t.Fatalf("unexpected log outputs %v", cfgs[1].LogOutputs)
	}

	shared, err := Load(cfgs[0].ConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if shared.LocalRank != 0 {
		t.Fatalf("unexpected stored local rank %d", shared.LocalRank)
	}
	var buf bytes.Buffer
	PrintOptions(&buf, shared.Options())
	if !strings.Contains(buf.String(), "OPTIONS USED:") {
		t.Fatalf("unexpected dump %q", buf.String())
	}

	// resuming the shared file on rank 1 keeps it intact
	resumed, err := Load(cfgs[0].ConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	resumed.LocalRank = 1
	if err = resumed.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if resumed.ConfigPath != cfgs[1].ConfigPath {
		t.Fatalf("expected %q, got %q", cfgs[1].ConfigPath, resumed.ConfigPath)
	}

	// no temporary files are left behind
	entries, err := os.ReadDir("options")
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Fatalf("unexpected temporary file %q", e.Name())
		}
	}
}
