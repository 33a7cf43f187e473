// Package pganconfig defines the options of the progressive-growing GAN trainer.
package pganconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/deepprivacy/pgan/pkg/logutil"
	"github.com/deepprivacy/pgan/pkg/randutil"
	"github.com/deepprivacy/pgan/pkg/timeutil"
	"github.com/mitchellh/colorstring"
	"sigs.k8s.io/yaml"
)

// Config defines the trainer options.
// By default, it uses the environmental variables with the "PGAN_" prefix.
type Config struct {
	mu *sync.RWMutex `json:"-"`

	// BatchSize is the batch size per image resolution.
	BatchSize BatchSchedule `json:"batch_size"`
	// NCritic is the number of discriminator steps per generator step.
	NCritic      int     `json:"n_critic"`
	LearningRate float64 `json:"learning_rate"`
	// PoseSize is the dimension of the pose information.
	PoseSize  int `json:"pose_size"`
	NumEpochs int `json:"num_epochs"`
	// ModelName names the checkpoint, generated data, summaries and options paths.
	ModelName string `json:"model_name"`
	// Imsize is the image size training starts at.
	Imsize int `json:"imsize"`
	// MaxImsize is the final image size.
	MaxImsize        int    `json:"max_imsize"`
	StartChannelSize int    `json:"start_channel_size"`
	Dataset          string `json:"dataset"`
	// TransitionIters is the number of images to show each transition phase.
	TransitionIters              int     `json:"transition_iters"`
	RunningAverageGeneratorDecay float64 `json:"running_average_generator_decay"`
	// OptLevel is the mixed precision optimization level, "O0" or "O1".
	OptLevel           string `json:"opt_level"`
	DiscriminatorModel string `json:"discriminator_model"`
	// LocalRank is the process index on its node, set by the launcher.
	LocalRank int `json:"local_rank"`

	// OptionsDir is the directory the options file is stored in.
	OptionsDir string `json:"options_dir"`
	// ConfigPath is the options file path.
	// Default is "<options_dir>/<model_name>.yaml" for local rank 0,
	// and "<options_dir>/<model_name>.rank<N>.yaml" for local rank N.
	ConfigPath string `json:"config_path"`

	// LogColor is true to output logs in color.
	LogColor bool `json:"log_color"`
	// LogColorOverride is not empty to override "LogColor" setting.
	// If not empty, the automatic color check is not even run and use this value instead.
	LogColorOverride string `json:"log_color_override"`
	// LogLevel configures log level. Only supports debug, info, warn, error, dpanic, panic, or fatal. Default 'info'.
	LogLevel string `json:"log_level"`
	// LogOutputs is a list of log outputs. Valid values are 'stderr', 'stdout', or file names.
	// Logs are appended to the existing file, if any.
	// If only 'stderr' or 'stdout' is set, a log file named after the options file is added.
	LogOutputs []string `json:"log_outputs"`

	// S3Bucket is not empty to upload the options file after bootstrap.
	S3Bucket string `json:"s3_bucket"`
	// S3Dir is the key prefix for uploads.
	S3Dir string `json:"s3_dir"`
	// MetricsNamespace is not empty to emit bootstrap metrics to CloudWatch.
	MetricsNamespace string `json:"metrics_namespace"`

	CheckpointDir    string `json:"checkpoint_dir" read-only:"true"`
	GeneratedDataDir string `json:"generated_data_dir" read-only:"true"`
	// SummariesDir is computed but never created here.
	SummariesDir string `json:"summaries_dir" read-only:"true"`

	// Distributed is true when more than one process joined the group.
	Distributed bool `json:"distributed" read-only:"true"`
	WorldSize   int  `json:"world_size" read-only:"true"`
	// TimeFrameBootstrap is the time the rendezvous took.
	TimeFrameBootstrap timeutil.TimeFrame `json:"time_frame_bootstrap" read-only:"true"`
}

const (
	DefaultNCritic                      = 1
	DefaultLearningRate                 = 0.00125
	DefaultPoseSize                     = 14
	DefaultNumEpochs                    = 500
	DefaultImsize                       = 4
	DefaultMaxImsize                    = 128
	DefaultStartChannelSize             = 256
	DefaultDataset                      = "yfcc100m"
	DefaultTransitionIters              = 1200000
	DefaultRunningAverageGeneratorDecay = 0.999
	DefaultOptLevel                     = "O1"
	DefaultDiscriminatorModel           = "normal"
	DefaultOptionsDir                   = "options"
	DefaultS3Dir                        = "pgan"

	checkpointsDir   = "checkpoints"
	generatedDataDir = "generated_data"
	summariesDir     = "summaries"
)

// NameGenerator returns a model name when none is given.
type NameGenerator func() string

// NewDefault returns a default configuration.
// The model name comes from "gen" (random word if nil), unless "PGAN_MODEL_NAME" is set.
func NewDefault(gen NameGenerator) *Config {
	if gen == nil {
		gen = randutil.Word
	}
	name := gen()
	if v := os.Getenv(EnvironmentVariablePrefix + "MODEL_NAME"); v != "" {
		name = v
	}

	bs, err := ParseBatchSchedule(DefaultBatchSize)
	if err != nil {
		panic(err)
	}
	return &Config{
		mu: new(sync.RWMutex),

		BatchSize:                    bs,
		NCritic:                      DefaultNCritic,
		LearningRate:                 DefaultLearningRate,
		PoseSize:                     DefaultPoseSize,
		NumEpochs:                    DefaultNumEpochs,
		ModelName:                    name,
		Imsize:                       DefaultImsize,
		MaxImsize:                    DefaultMaxImsize,
		StartChannelSize:             DefaultStartChannelSize,
		Dataset:                      DefaultDataset,
		TransitionIters:              DefaultTransitionIters,
		RunningAverageGeneratorDecay: DefaultRunningAverageGeneratorDecay,
		OptLevel:                     DefaultOptLevel,
		DiscriminatorModel:           DefaultDiscriminatorModel,
		LocalRank:                    0,

		OptionsDir: DefaultOptionsDir,

		LogColor:         true,
		LogColorOverride: "",
		LogLevel:         logutil.DefaultLogLevel,
		// log file named with model name will be added automatically
		LogOutputs: []string{"stderr"},

		S3Dir: DefaultS3Dir,

		WorldSize: 1,
	}
}

// Load loads the options file from disk.
// It does not set defaults; call "ValidateAndSetDefaults" afterwards.
func Load(p string) (cfg *Config, err error) {
	var d []byte
	d, err = os.ReadFile(p)
	if err != nil {
		return nil, err
	}
	cfg = new(Config)
	if err = yaml.Unmarshal(d, cfg, yaml.DisallowUnknownFields); err != nil {
		return nil, fmt.Errorf("failed to parse %q (%v)", p, err)
	}
	cfg.mu = new(sync.RWMutex)

	var ap string
	ap, err = filepath.Abs(p)
	if err != nil {
		return nil, err
	}
	cfg.ConfigPath = ap

	return cfg, nil
}

// Sync writes the options file to disk.
func (cfg *Config) Sync() error {
	cfg.lock()
	defer cfg.mu.Unlock()
	return cfg.unsafeSync()
}

func (cfg *Config) unsafeSync() error {
	if cfg.ConfigPath == "" {
		return errors.New("empty config path")
	}
	if !filepath.IsAbs(cfg.ConfigPath) {
		p, err := filepath.Abs(cfg.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to 'filepath.Abs(%s)' %v", cfg.ConfigPath, err)
		}
		cfg.ConfigPath = p
	}

	d, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to 'yaml.Marshal' %v", err)
	}
	if err = writeFileAtomic(cfg.ConfigPath, d); err != nil {
		return fmt.Errorf("failed to write file %q (%v)", cfg.ConfigPath, err)
	}
	return nil
}

// writeFileAtomic writes to a temporary file next to p, then renames it,
// so readers never see a partial options file.
func writeFileAtomic(p string, d []byte) error {
	f, err := os.CreateTemp(filepath.Dir(p), "."+filepath.Base(p)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err = f.Write(d); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err = f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err = os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// RecordDistributed records the bootstrap result and writes the options file.
func (cfg *Config) RecordDistributed(distributed bool, worldSize int, tf timeutil.TimeFrame) error {
	cfg.lock()
	defer cfg.mu.Unlock()

	cfg.Distributed = distributed
	cfg.WorldSize = worldSize
	cfg.TimeFrameBootstrap = tf
	return cfg.unsafeSync()
}

// Colorize prints colorized input, if color output is supported.
func (cfg *Config) Colorize(input string) string {
	colorize := colorstring.Colorize{
		Colors:  colorstring.DefaultColors,
		Disable: !cfg.LogColor,
		Reset:   true,
	}
	return colorize.Color(input)
}

func (cfg *Config) lock() {
	if cfg.mu == nil {
		cfg.mu = new(sync.RWMutex)
	}
	cfg.mu.Lock()
}

func (cfg *Config) rlock() {
	if cfg.mu == nil {
		cfg.mu = new(sync.RWMutex)
	}
	cfg.mu.RLock()
}
