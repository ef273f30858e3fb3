package commands

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"patchfs/internal/common"
)

var statPatchID string

var statCmd = &cobra.Command{
	Use:   "stat <path>",
	Short: "Print the version of a file or directory",
	Long: `Print the version of a file or directory as YAML.

Directories also list the version of every child. With --patch the stat
is taken through the patch: files and directories the patch touches
report the patch version.

Examples:
  patchfs stat src/main.go
  patchfs stat src/ --patch 3f2c...`,
	Args: cobra.ExactArgs(1),
	RunE: runStat,
}

func init() {
	statCmd.Flags().StringVarP(&statPatchID, "patch", "p", "", "Patch id to overlay")
	rootCmd.AddCommand(statCmd)
}

func runStat(cmd *cobra.Command, args []string) error {
	view, closeView, err := openView(cmd.Context(), statPatchID)
	defer closeView()
	if err != nil {
		return err
	}

	st, err := view.Stat(resolveKind(view, common.StorePath(args[0])))
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(st)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(out)
	return err
}
