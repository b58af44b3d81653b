package cmd

import (
	"sync"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sheetdiff-project/sheetdiff/internal/sheet"
)

var (
	cachedUIDs []string
	uidsOnce   sync.Once
)

var completionCmd = &cobra.Command{
	Use:       "completion [SHELL]",
	Short:     "Prints shell completion scripts",
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			_ = cmd.Root().GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			_ = cmd.Root().GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			_ = cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			_ = cmd.Root().GenPowerShellCompletion(cmd.OutOrStdout())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

func loadRosterUIDs(dir string) ([]string, error) {
	sheets, err := sheet.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	uids := make([]string, 0, len(sheets))
	for _, s := range sheets {
		uids = append(uids, s.UID)
	}
	return uids, nil
}

func sheetCompletion(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	uidsOnce.Do(func() {
		dir := viper.GetString("roster")
		if dir == "" {
			dir = rosterDir
		}
		if dir == "" {
			return
		}
		if s, err := loadRosterUIDs(dir); err == nil {
			cachedUIDs = s
		}
	})
	return cachedUIDs, cobra.ShellCompDirectiveNoFileComp
}
