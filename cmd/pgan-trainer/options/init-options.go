package options

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	aws_s3_v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/deepprivacy/pgan/distributed"
	"github.com/deepprivacy/pgan/internal/awssdk"
	"github.com/deepprivacy/pgan/internal/metrics"
	"github.com/deepprivacy/pgan/pganconfig"
	aws_s3 "github.com/deepprivacy/pgan/pkg/aws/s3"
	"github.com/deepprivacy/pgan/pkg/fileutil"
	"github.com/deepprivacy/pgan/pkg/logutil"
	"github.com/deepprivacy/pgan/pkg/spinner"
	"github.com/deepprivacy/pgan/version"
	"github.com/dustin/go-humanize"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

var (
	enablePrompt bool
	device       string
	awsRegion    string

	flagCfg *pganconfig.Config
)

// NewInitCommand implements "pgan-trainer init" command.
func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Loads the training options, creates the run directories and joins the process group",
		Run:   initFunc,
	}
	cmd.Flags().StringVar(&path, "path", "", "options file to resume from (flags set on the command line override its values)")
	cmd.Flags().BoolVar(&enablePrompt, "enable-prompt", false, "'true' to confirm before overwriting an existing options file")
	cmd.Flags().StringVar(&device, "device", "cuda", "device to bind per local rank ('cuda' or 'cpu')")
	cmd.Flags().StringVar(&awsRegion, "aws-region", "", "AWS region for uploads and metrics (default from the environment)")

	flagCfg = pganconfig.NewDefault(nil)
	pganconfig.AddFlags(cmd.Flags(), flagCfg)
	return cmd
}

var errCancelled = errors.New("cancelled")

func initFunc(cmd *cobra.Command, args []string) {
	cfg, err := prepare(cmd.Flags())
	if errors.Is(err, errCancelled) {
		fmt.Fprintf(os.Stderr, "cancelled, options file %q kept\n", cfg.ConfigPath)
		os.Exit(1)
	}
	if err != nil {
		exitWithError(cfg, "failed to prepare options", err)
	}

	lg, logWriter, logFile, err := logutil.NewWithStderrWriter(cfg.LogLevel, cfg.LogOutputs)
	if err != nil {
		exitWithError(cfg, "failed to create logger", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	_ = zap.ReplaceGlobals(lg)

	lg.Info("wrote options",
		zap.String("path", cfg.ConfigPath),
		zap.String("model-name", cfg.ModelName),
		zap.String("transition-iters", humanize.Comma(int64(cfg.TransitionIters))),
		zap.String("version", version.Version()),
	)
	cfg.Print(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err = bootstrap(ctx, lg, cfg); err != nil {
		exitWithError(cfg, "failed to bootstrap", err)
	}

	fmt.Fprintf(logWriter, cfg.Colorize("\n[light_green]options ready [default](%q)\n\n"), cfg.ConfigPath)
}

// prepare loads and validates the options, then creates the run
// directories and writes the options file. Nothing is created when
// loading or validation fails.
func prepare(fs *pflag.FlagSet) (*pganconfig.Config, error) {
	cfg, err := loadConfig(fs)
	if err != nil {
		return nil, err
	}
	if !confirmOverwrite(cfg) {
		return cfg, errCancelled
	}
	if err = cfg.EnsureDirs(); err != nil {
		return cfg, fmt.Errorf("failed to create directories (%v)", err)
	}
	if err = cfg.Sync(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// loadConfig resolves defaults (or a stored options file), flags and
// environment variables, then validates the result.
// "LOCAL_RANK" from the launcher is used when "--local_rank" is not given.
func loadConfig(fs *pflag.FlagSet) (*pganconfig.Config, error) {
	env, err := distributed.FromEnv(nil)
	if err != nil {
		return nil, err
	}

	cfg := flagCfg
	if path != "" {
		if !fileutil.Exist(path) {
			return nil, fmt.Errorf("cannot find options file %q", path)
		}
		cfg, err = pganconfig.Load(path)
		if err != nil {
			return nil, err
		}
		if err = pganconfig.ApplyFlags(fs, cfg); err != nil {
			return nil, err
		}
	}
	if env.LocalRankSet && !fs.Changed("local_rank") {
		cfg.LocalRank = env.LocalRank
	}
	if err = cfg.UpdateFromEnvs(); err != nil {
		return nil, err
	}
	if err = cfg.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err = resolveLogColor(cfg, defaultIsColor); err != nil {
		return nil, err
	}
	return cfg, nil
}

func confirmOverwrite(cfg *pganconfig.Config) bool {
	if !enablePrompt || path != "" || cfg.LocalRank != 0 || !fileutil.Exist(cfg.ConfigPath) {
		return true
	}
	prompt := promptui.Select{
		Label: fmt.Sprintf("Options file %q already exists, should we overwrite it?", cfg.ConfigPath),
		Items: []string{
			"No, cancel it!",
			"Yes, let's overwrite it!",
		},
	}
	idx, answer, err := prompt.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "prompt failed %v\n", err)
		return false
	}
	if idx != 1 {
		fmt.Printf("cancelled [index %d, answer %q]\n", idx, answer)
		return false
	}
	return true
}

func bootstrap(ctx context.Context, lg *zap.Logger, cfg *pganconfig.Config) error {
	env, err := distributed.FromEnv(nil)
	if err != nil {
		return err
	}

	var binder distributed.DeviceBinder = distributed.NoopBinder{}
	var nv *distributed.NVIDIABinder
	switch device {
	case "cpu":
	case "cuda":
		nv = distributed.NewNVIDIABinder()
		binder = nv
	default:
		return fmt.Errorf("unknown device %q", device)
	}

	var sp *spinner.Spinner
	if env.Distributed() {
		sp = spinner.New(os.Stderr, fmt.Sprintf("waiting for %d processes at %s", env.WorldSize, env.Addr()))
		sp.Start()
	}
	st, g, err := distributed.Bootstrap(ctx, lg, env, cfg.LocalRank, binder, distributed.NewTCPBackend(lg))
	if sp != nil {
		sp.Stop()
	}
	if err != nil {
		return err
	}
	if g != nil {
		if err = g.Barrier(ctx); err != nil {
			g.Close()
			return err
		}
		g.Close()
	}
	if nv != nil && st.Distributed {
		lg.Info("bound device", zap.String("env", nv.VisibleDevices()))
	}

	if err = cfg.RecordDistributed(st.Distributed, st.WorldSize, st.TimeFrame); err != nil {
		return err
	}
	if st.Rank != 0 {
		return nil
	}
	return publish(ctx, lg, cfg, st)
}

// publish uploads the options file and emits bootstrap metrics, when configured.
func publish(ctx context.Context, lg *zap.Logger, cfg *pganconfig.Config, st distributed.State) error {
	if cfg.S3Bucket == "" && cfg.MetricsNamespace == "" {
		return nil
	}
	awsCfg, err := awssdk.NewConfig(ctx, awsRegion)
	if err != nil {
		return err
	}

	var s3API aws_s3.PutObjectAPI
	if cfg.S3Bucket != "" {
		s3API = aws_s3_v2.NewFromConfig(awsCfg)
	}
	registry := metrics.NewNoopMetricRegistry(lg)
	if cfg.MetricsNamespace != "" {
		registry = metrics.NewCloudWatchRegistry(lg, cloudwatch.NewFromConfig(awsCfg))
	}
	return publishWith(ctx, lg, cfg, st, s3API, registry)
}

func publishWith(ctx context.Context, lg *zap.Logger, cfg *pganconfig.Config, st distributed.State, s3API aws_s3.PutObjectAPI, registry metrics.MetricRegistry) error {
	if s3API != nil {
		key := aws_s3.Key(cfg.S3Dir, cfg.ModelName, cfg.ConfigPath)
		if err := aws_s3.Upload(ctx, lg, s3API, cfg.S3Bucket, key, cfg.ConfigPath); err != nil {
			return err
		}
	}

	worldSize, took := metrics.BootstrapSpecs(cfg.MetricsNamespace)
	dims := map[string]string{"ModelName": cfg.ModelName, "Dataset": cfg.Dataset}
	registry.Record(worldSize, float64(st.WorldSize), dims)
	registry.Record(took, st.TimeFrame.Took.Seconds(), dims)
	return registry.Emit()
}
