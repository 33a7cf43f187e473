package pganconfig

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"
)

// AddFlags binds the trainer option flags to the fields of cfg.
// Flag defaults are the current field values.
func AddFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.SetNormalizeFunc(normalizeFlagName)

	if cfg.BatchSize == nil {
		cfg.BatchSize, _ = ParseBatchSchedule(DefaultBatchSize)
	}
	fs.VarP(&cfg.BatchSize, "batch-size", "b", fmt.Sprintf("Set batch size for training. Format: {batch-size %dx%d},{bs, %dx%d},{%dx%d},..{%dx%d}",
		Imsizes[0], Imsizes[0], Imsizes[1], Imsizes[1], Imsizes[2], Imsizes[2], Imsizes[len(Imsizes)-1], Imsizes[len(Imsizes)-1]))
	fs.IntVarP(&cfg.NCritic, "n-critic", "c", cfg.NCritic, "Set number of critic(discriminator) batch step per generator step")
	fs.Float64VarP(&cfg.LearningRate, "learning-rate", "l", cfg.LearningRate, "Set learning rate")
	fs.IntVarP(&cfg.PoseSize, "pose-size", "p", cfg.PoseSize, "Set dimension of pose information.")
	fs.IntVarP(&cfg.NumEpochs, "num-epochs", "e", cfg.NumEpochs, "Set number of epochs")
	fs.StringVar(&cfg.ModelName, "name", cfg.ModelName, "Set the name of the model (alias --model-name)")
	fs.IntVar(&cfg.Imsize, "imsize", cfg.Imsize, "Set the image size for discriminator and generator")
	fs.IntVar(&cfg.MaxImsize, "max-imsize", cfg.MaxImsize, "Set the final image size for the discriminator and generator")
	fs.IntVar(&cfg.StartChannelSize, "start-channel-size", cfg.StartChannelSize, "Set the channel start size for Discriminator and Generator")
	fs.StringVar(&cfg.Dataset, "dataset", cfg.Dataset, "Set the dataset to load")
	fs.IntVar(&cfg.TransitionIters, "transition-iters", cfg.TransitionIters, "Set the number of images to show each transition phase")
	fs.Float64Var(&cfg.RunningAverageGeneratorDecay, "running-average-generator-decay", cfg.RunningAverageGeneratorDecay, "Set the decay rate for the running average of the generator")
	fs.StringVar(&cfg.OptLevel, "opt-level", cfg.OptLevel, "Set the optimization level for mixed precision (O0 or O1)")
	fs.StringVar(&cfg.DiscriminatorModel, "discriminator-model", cfg.DiscriminatorModel, "Set the default discriminator architecture")
	fs.IntVar(&cfg.LocalRank, "local_rank", cfg.LocalRank, "Set the local process rank (set by the distributed launcher, alias --local-rank)")

	fs.StringVar(&cfg.OptionsDir, "options-dir", cfg.OptionsDir, "Set the directory the options file is stored in")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Set the log level (debug, info, warn, error, dpanic, panic, fatal)")
	fs.StringSliceVar(&cfg.LogOutputs, "log-outputs", cfg.LogOutputs, "Set the log outputs ('stderr', 'stdout', or file names)")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "Set the S3 bucket to upload the options file to")
	fs.StringVar(&cfg.S3Dir, "s3-dir", cfg.S3Dir, "Set the S3 key prefix for uploads")
	fs.StringVar(&cfg.MetricsNamespace, "metrics-namespace", cfg.MetricsNamespace, "Set the CloudWatch namespace for bootstrap metrics")
}

func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	switch name {
	case "model-name", "model_name":
		name = "name"
	case "local-rank":
		name = "local_rank"
	}
	return pflag.NormalizedName(name)
}

// Parse parses the trainer option flags in args into cfg.
// Unknown flags are errors.
func Parse(args []string, cfg *Config) error {
	fs := pflag.NewFlagSet("pgan", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	AddFlags(fs, cfg)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags %q (%v)", args, err)
	}
	return nil
}

// ApplyFlags copies the flags that were explicitly set in "changed" onto cfg.
// Used to override an options file loaded after the flags were parsed.
func ApplyFlags(changed *pflag.FlagSet, cfg *Config) error {
	fs := pflag.NewFlagSet("pgan", pflag.ContinueOnError)
	AddFlags(fs, cfg)

	var err error
	changed.Visit(func(f *pflag.Flag) {
		if err != nil || fs.Lookup(f.Name) == nil {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			if serr := fs.Lookup(f.Name).Value.(pflag.SliceValue).Replace(sv.GetSlice()); serr != nil {
				err = fmt.Errorf("failed to apply flag %q (%v)", f.Name, serr)
			}
			return
		}
		if serr := fs.Set(f.Name, f.Value.String()); serr != nil {
			err = fmt.Errorf("failed to apply flag %q (%v)", f.Name, serr)
		}
	})
	return err
}
