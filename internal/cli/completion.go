package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/mvnkit/pkg/maven"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for mvnkit.

Bash:
  $ source <(mvnkit completion bash)

Zsh:
  $ mvnkit completion zsh > "${fpath[1]}/_mvnkit"

Fish:
  $ mvnkit completion fish > ~/.config/fish/completions/mvnkit.fish

PowerShell:
  PS> mvnkit completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

// completableScopes are the scopes a classpath can be computed for.
var completableScopes = []maven.Scope{
	maven.ScopeCompile,
	maven.ScopeProvided,
	maven.ScopeRuntime,
	maven.ScopeTest,
}

// completeScopes completes one element of a comma-separated scope list.
func completeScopes(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	prefix := ""
	if i := strings.LastIndexByte(toComplete, ','); i >= 0 {
		prefix = toComplete[:i+1]
	}
	var out []string
	for _, s := range completableScopes {
		if strings.HasPrefix(prefix+s.String(), toComplete) && !strings.Contains(","+prefix, ","+s.String()+",") {
			out = append(out, prefix+s.String())
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

// completeFormats completes --format for the classpath command.
func completeFormats(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return []string{formatPath, formatEclipse}, cobra.ShellCompDirectiveNoFileComp
}
