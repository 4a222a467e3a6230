package commands

import (
	"github.com/spf13/cobra"

	"github.com/conduit-lang/pipecheck/internal/operators"
)

// NewCompletionCommand creates the completion command for shell completions
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for pipecheck.

To load completions:

Bash:

  $ source <(pipecheck completion bash)

Zsh:

  $ pipecheck completion zsh > "${fpath[1]}/_pipecheck"

Fish:

  $ pipecheck completion fish | source

PowerShell:

  PS> pipecheck completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			out := cmd.OutOrStdout()

			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(out, true)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}

// completeOperatorTypes completes the first argument with registered
// operator type names
func completeOperatorTypes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var names []string
	for _, d := range operators.NewBuiltinRegistry().List() {
		names = append(names, d.Name+"\t"+d.Description)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// completePipelineFiles limits file completion to YAML files
func completePipelineFiles(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return []string{"yml", "yaml"}, cobra.ShellCompDirectiveFilterFileExt
}
