package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"patchfs/internal/common"
)

var readPatchID string

var readCmd = &cobra.Command{
	Use:   "read <path>...",
	Short: "Print file contents or directory listings",
	Long: `Print the contents of files and the entries of directories.

All paths are read in one request. With more than one path each result
is preceded by a "==> path <==" header.

Examples:
  patchfs read README.md
  patchfs read src/ src/main.go --patch 3f2c...`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRead,
}

func init() {
	readCmd.Flags().StringVarP(&readPatchID, "patch", "p", "", "Patch id to overlay")
	rootCmd.AddCommand(readCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	view, closeView, err := openView(cmd.Context(), readPatchID)
	defer closeView()
	if err != nil {
		return err
	}

	paths := make([]string, len(args))
	for i, arg := range args {
		paths[i] = resolveKind(view, common.StorePath(arg))
	}

	contents, err := view.Read(paths).Get()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, p := range paths {
		if len(paths) > 1 {
			if i > 0 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "==> %s <==\n", p)
		}
		c := contents[p]
		if c.Children != nil {
			for _, name := range c.Children {
				fmt.Fprintln(out, name)
			}
			continue
		}
		out.Write(c.Data)
	}
	return nil
}
