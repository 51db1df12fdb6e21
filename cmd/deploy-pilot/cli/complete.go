package cli

import (
	"strings"

	"github.com/davarch/deploy-pilot/internal/application"
	"github.com/davarch/deploy-pilot/internal/domain"
	"github.com/spf13/cobra"
)

const argConfig = "config"

var deployKeys = []string{
	application.ArgStage,
	application.ArgAPIKey,
	application.ArgSolutionPath,
	application.ArgPackageName,
	application.ArgVersion,
	application.ArgArtifactID,
	application.ArgTimeout,
	argConfig,
}

// completeDeployArgs completes the flat "--key value" list of deploy, which
// cobra cannot do itself because flag parsing is disabled.
func completeDeployArgs(_ *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if n := len(args); n > 0 && strings.HasPrefix(args[n-1], "--") {
		switch strings.TrimPrefix(args[n-1], "--") {
		case application.ArgStage:
			return withPrefix([]string{string(domain.StageAll), string(domain.StageUpload), string(domain.StageDeploy)}, toComplete),
				cobra.ShellCompDirectiveNoFileComp
		case application.ArgSolutionPath, argConfig:
			return nil, cobra.ShellCompDirectiveDefault
		default:
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
	}

	used := make(map[string]bool, len(args))
	for _, a := range args {
		used[strings.TrimPrefix(a, "--")] = true
	}

	var keys []string
	for _, k := range deployKeys {
		if !used[k] {
			keys = append(keys, "--"+k)
		}
	}
	return withPrefix(keys, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func withPrefix(candidates []string, prefix string) []string {
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}
