package pganconfig

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/deepprivacy/pgan/pkg/fileutil"
	"github.com/deepprivacy/pgan/pkg/logutil"
)

// ErrInvalidStartChannelSize is returned when the start channel size cannot be
// halved once per doubling of the image size up to the max image size.
var ErrInvalidStartChannelSize = errors.New("invalid start channel size")

// ErrInvalidOptLevel is returned for optimization levels other than "O0" and "O1".
var ErrInvalidOptLevel = errors.New("invalid optimization level")

// OptLevelError names the rejected optimization level.
type OptLevelError struct {
	Level string
}

func (e *OptLevelError) Error() string {
	return fmt.Sprintf("optimization level not correct. It was: %s", e.Level)
}

func (e *OptLevelError) Is(target error) bool { return target == ErrInvalidOptLevel }

// ValidateStartChannelSize returns an error unless
// "log2(maxImsize) - 2 < log2(startChannelSize) + 2".
// Training starts at 4x4, so the image doubles log2(maxImsize)-2 times.
func ValidateStartChannelSize(maxImsize int, startChannelSize int) error {
	if maxImsize <= 0 || startChannelSize <= 0 {
		return fmt.Errorf("%w: max_imsize %d and start_channel_size %d must be positive",
			ErrInvalidStartChannelSize, maxImsize, startChannelSize)
	}
	nImageDouble := math.Log2(float64(maxImsize)) - 2
	nChannelHalving := math.Log2(float64(startChannelSize)) + 2
	if !(nImageDouble < nChannelHalving) {
		return fmt.Errorf("%w: max_imsize %d doubles the image %g times, start_channel_size %d allows %g halvings",
			ErrInvalidStartChannelSize, maxImsize, nImageDouble, startChannelSize, nChannelHalving)
	}
	return nil
}

// ValidateOptLevel returns an error if the level is not "O0" or "O1".
func ValidateOptLevel(level string) error {
	switch level {
	case "O0", "O1":
		return nil
	}
	return &OptLevelError{Level: level}
}

// ValidateAndSetDefaults returns an error for invalid configurations.
// And updates empty fields with default values, and derives the
// checkpoint, generated data, summaries and options file paths.
// It does not touch the filesystem; see "EnsureDirs" and "Sync".
func (cfg *Config) ValidateAndSetDefaults() error {
	cfg.lock()
	defer cfg.mu.Unlock()

	if err := cfg.validateConfig(); err != nil {
		return fmt.Errorf("validateConfig failed [%w]", err)
	}
	return nil
}

func (cfg *Config) validateConfig() error {
	if err := ValidateStartChannelSize(cfg.MaxImsize, cfg.StartChannelSize); err != nil {
		return err
	}
	if err := ValidateOptLevel(cfg.OptLevel); err != nil {
		return err
	}

	if len(cfg.BatchSize) == 0 {
		bs, err := ParseBatchSchedule(DefaultBatchSize)
		if err != nil {
			return err
		}
		cfg.BatchSize = bs
	}
	if err := cfg.BatchSize.validate(); err != nil {
		return err
	}

	if cfg.ModelName == "" {
		return errors.New("empty model_name")
	}
	if strings.ContainsAny(cfg.ModelName, `/\`) || cfg.ModelName == "." || cfg.ModelName == ".." {
		return fmt.Errorf("model_name %q must not be a path", cfg.ModelName)
	}

	switch {
	case cfg.NCritic <= 0:
		return fmt.Errorf("n_critic must be positive, got %d", cfg.NCritic)
	case cfg.NumEpochs <= 0:
		return fmt.Errorf("num_epochs must be positive, got %d", cfg.NumEpochs)
	case cfg.TransitionIters <= 0:
		return fmt.Errorf("transition_iters must be positive, got %d", cfg.TransitionIters)
	case cfg.PoseSize < 0:
		return fmt.Errorf("pose_size must not be negative, got %d", cfg.PoseSize)
	case !(cfg.LearningRate > 0):
		return fmt.Errorf("learning_rate must be positive, got %v", cfg.LearningRate)
	case !(cfg.RunningAverageGeneratorDecay > 0 && cfg.RunningAverageGeneratorDecay <= 1):
		return fmt.Errorf("running_average_generator_decay must be in (0, 1], got %v", cfg.RunningAverageGeneratorDecay)
	case cfg.LocalRank < 0:
		return fmt.Errorf("local_rank must not be negative, got %d", cfg.LocalRank)
	}

	if !isImsize(cfg.Imsize) {
		return fmt.Errorf("imsize %d not in %v", cfg.Imsize, Imsizes)
	}
	if !isImsize(cfg.MaxImsize) {
		return fmt.Errorf("max_imsize %d not in %v", cfg.MaxImsize, Imsizes)
	}
	if cfg.Imsize > cfg.MaxImsize {
		return fmt.Errorf("imsize %d is larger than max_imsize %d", cfg.Imsize, cfg.MaxImsize)
	}

	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	if cfg.DiscriminatorModel == "" {
		cfg.DiscriminatorModel = DefaultDiscriminatorModel
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = logutil.DefaultLogLevel
	}
	if _, err := logutil.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("log_level %v", err)
	}

	cfg.CheckpointDir = filepath.Join(checkpointsDir, cfg.ModelName)
	cfg.GeneratedDataDir = filepath.Join(generatedDataDir, cfg.ModelName)
	cfg.SummariesDir = filepath.Join(summariesDir, cfg.ModelName)

	if cfg.OptionsDir == "" {
		cfg.OptionsDir = DefaultOptionsDir
	}
	if cfg.ConfigPath == "" {
		cfg.ConfigPath = filepath.Join(cfg.OptionsDir, cfg.ModelName+".yaml")
	}
	// local rank 0 owns the shared file, the others write their own
	cfg.ConfigPath = RankPath(cfg.ConfigPath, cfg.LocalRank)

	if len(cfg.LogOutputs) == 0 {
		cfg.LogOutputs = []string{"stderr"}
	}
	if len(cfg.LogOutputs) == 1 && (cfg.LogOutputs[0] == "stderr" || cfg.LogOutputs[0] == "stdout") {
		cfg.LogOutputs = append(cfg.LogOutputs, strings.TrimSuffix(cfg.ConfigPath, filepath.Ext(cfg.ConfigPath))+".log")
	}

	if cfg.S3Bucket != "" && cfg.S3Dir == "" {
		cfg.S3Dir = DefaultS3Dir
	}
	if cfg.WorldSize == 0 {
		cfg.WorldSize = 1
	}

	return nil
}

// EnsureDirs creates the options, checkpoint and generated data directories.
// The summaries directory is left to the summary writer.
// Safe to call more than once.
func (cfg *Config) EnsureDirs() error {
	cfg.rlock()
	defer cfg.mu.RUnlock()

	if cfg.CheckpointDir == "" || cfg.GeneratedDataDir == "" {
		return errors.New("directories not derived; call ValidateAndSetDefaults first")
	}
	optionsDir := filepath.Dir(cfg.ConfigPath)
	if err := fileutil.MkdirAll(0755, cfg.OptionsDir, optionsDir, cfg.CheckpointDir, cfg.GeneratedDataDir); err != nil {
		return err
	}
	return fileutil.IsDirWriteable(optionsDir)
}

// RankPath returns the options file path of a local rank.
// Local rank 0 keeps "p", other ranks get "<base>.rank<N><ext>".
func RankPath(p string, localRank int) string {
	if localRank <= 0 {
		return p
	}
	ext := filepath.Ext(p)
	base := strings.TrimSuffix(p, ext)
	suffix := fmt.Sprintf(".rank%d", localRank)
	if strings.HasSuffix(base, suffix) {
		return p
	}
	return base + suffix + ext
}
