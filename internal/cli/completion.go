package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for comfygcs.

To load completions:

Bash:
  $ source <(comfygcs completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ comfygcs completion bash > /etc/bash_completion.d/comfygcs
  # macOS:
  $ comfygcs completion bash > $(brew --prefix)/etc/bash_completion.d/comfygcs

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ comfygcs completion zsh > "${fpath[1]}/_comfygcs"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ comfygcs completion fish | source

  # To load completions for each session, execute once:
  $ comfygcs completion fish > ~/.config/fish/completions/comfygcs.fish

PowerShell:
  PS> comfygcs completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> comfygcs completion powershell > comfygcs.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
