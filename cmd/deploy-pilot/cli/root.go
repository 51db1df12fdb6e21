package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "deploy-pilot",
	Short: "Build, upload and deploy a package, then wait for the deployment to finish",
	Long: `deploy-pilot runs one deployment pipeline per invocation, as a CI step.

It packages a solution, uploads it to the deployment management service
together with catalog metadata, starts a deployment and polls its status.
Progress is reported in the format of the CI host (GitHub Actions, Azure
Pipelines or a plain console) and the process exit code tells the outcome.

Exit codes:
  0    success
  1    internal failure, failed stage or failed deployment
  2    invalid arguments
  3    unauthorized
  4    deployment service unavailable
  5    deployment did not finish within --timeout
  130  cancelled (signal or abort file)`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitInternal)
	}
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the deploy-pilot version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deploy-pilot %s\n", version)
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts.

Completion covers the deploy arguments (--stage values, argument keys and
file paths for --solution-path and --config). For bash:

  source <(deploy-pilot completion bash)`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletionV2(w, true)
			case "zsh":
				return rootCmd.GenZshCompletion(w)
			case "fish":
				return rootCmd.GenFishCompletion(w, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletionWithDesc(w)
			}
			return nil
		},
	})
}
