package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/davarch/deploy-pilot/internal/application"
	"github.com/davarch/deploy-pilot/internal/domain"
	"github.com/davarch/deploy-pilot/internal/infrastructure/abortwatch"
	"github.com/davarch/deploy-pilot/internal/infrastructure/config"
	"github.com/davarch/deploy-pilot/internal/infrastructure/dms_http"
	"github.com/davarch/deploy-pilot/internal/infrastructure/gitmeta"
	"github.com/davarch/deploy-pilot/internal/infrastructure/logging"
	"github.com/davarch/deploy-pilot/internal/infrastructure/packager"
	"github.com/davarch/deploy-pilot/internal/infrastructure/presenter"
	"github.com/davarch/deploy-pilot/internal/infrastructure/report_fs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var deployCmd = &cobra.Command{
	Use:   "deploy --stage All|Upload|Deploy --api-key KEY [--key value ...]",
	Short: "Run the deployment pipeline",
	Long: `Run the deployment pipeline.

Arguments are passed as --key value pairs:
  --stage          All, Upload or Deploy
  --api-key        DMS API key (or DEPLOY_API_KEY)
  --solution-path  solution directory or prebuilt .zip (All, Upload)
  --package-name   package name (All, Upload)
  --version        MAJOR.MINOR.PATCH[-suffix] (All, Upload)
  --artifact-id    previously uploaded artifact (Deploy)
  --timeout        HH:MM to wait for the deployment, 00:01 to 12:00
  --config         path to deploy-pilot.yaml`,
	DisableFlagParsing: true,
	ValidArgsFunction:  completeDeployArgs,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runDeploy(cmd, args))
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)
}

func runDeploy(cmd *cobra.Command, args []string) int {
	log := logging.New()
	defer func() { _ = log.Sync() }()

	cfgPath, args := extractConfigPath(args)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Error("config", zap.String("path", cfgPath), zap.Error(err))
		return ExitInternal
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx, cancel := abortwatch.Watch(ctx, cfg.Run.AbortFile, log)
	defer cancel()

	host := presenter.Resolve(cfg.Presenter, os.Getenv)
	out := presenter.New(os.Stdout, host, os.Getenv("GITHUB_OUTPUT"))

	var report domain.ReportWriter
	if cfg.Report.Path != "" {
		report = report_fs.New(cfg.Report.Path)
	}

	wd, _ := os.Getwd()
	orch := application.NewOrchestrator(
		log,
		application.NewInputValidator(log, cfg.DMS.APIKey, cfg.Poll.DefaultTimeout),
		packager.New(log, cfg.Build.Command, cfg.Build.OutputDir, cfg.Build.Exclude),
		application.NewCatalogAssembler(log, gitmeta.New(wd), cfg.Catalog.BuildNumber),
		dms_http.New(cfg.DMS.BaseURL, cfg.DMS.Timeout),
		out,
		report,
		application.PollSettings{InitialDelay: cfg.Poll.InitialDelay, MaxDelay: cfg.Poll.MaxDelay},
	)

	log.Info("start",
		zap.String("version", version),
		zap.String("dms", cfg.DMS.BaseURL),
		zap.String("presenter", string(host)),
		zap.Duration("initial_delay", cfg.Poll.InitialDelay),
		zap.Duration("max_delay", cfg.Poll.MaxDelay),
	)

	outcome, err := orch.Run(ctx, args)
	if err != nil {
		log.Error("deployment pipeline failed", zap.Error(err))
		return ExitInternal
	}
	return ExitCode(outcome)
}

// extractConfigPath removes "--config path" from args. Flag parsing is
// disabled for deploy so the remaining tokens reach the validator as-is.
func extractConfigPath(args []string) (string, []string) {
	path := config.PathFromEnv()
	rest := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		if args[i] == "--config" && i+1 < len(args) {
			path = args[i+1]
			i++
			continue
		}
		rest = append(rest, args[i])
	}
	return path, rest
}
