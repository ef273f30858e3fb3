package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"patchfs/internal/common"
	"patchfs/internal/patcher"
	"patchfs/internal/storage"
)

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Manage stored patches",
	Long: `Manage the patches kept in the patch store.

Subcommands:
  create   Store a patch built from a directory of replacement files
  list     List all patches
  show     Show the files of a patch
  delete   Remove a patch

Examples:
  # Store the files under ./changes as a patch that also deletes old.go
  patchfs patch create --from ./changes --delete src/old.go -m "Refactor"

  # Read through the patch
  patchfs read src/ --patch <id>`,
}

var patchCreateCmd = &cobra.Command{
	Use:   "create --from <dir>",
	Short: "Store a patch built from a directory of replacement files",
	Long: `Store a patch built from a directory laid out like the host tree.

Every file under --from becomes a modified file if the host has it and an
added file otherwise. --delete marks host files as deleted and may be
repeated. The patch version defaults to a hash of the patch contents.

Examples:
  patchfs patch create --from ./changes
  patchfs patch create --from ./changes --delete src/old.go --version r1842`,
	Args: cobra.NoArgs,
	RunE: runPatchCreate,
}

var patchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all patches",
	Args:  cobra.NoArgs,
	RunE:  runPatchList,
}

var patchShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the files of a patch",
	Args:  cobra.ExactArgs(1),
	RunE:  runPatchShow,
}

var patchDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a patch",
	Long: `Remove a patch and its file contents from the patch store.

Examples:
  patchfs patch delete 3f2c...
  patchfs patch delete 3f2c... -y`,
	Args: cobra.ExactArgs(1),
	RunE: runPatchDelete,
}

// Flag variables
var (
	// create flags
	createFrom        string
	createDeleted     []string
	createID          string
	createVersion     string
	createDescription string

	// delete flags
	deleteSkipConfirm bool
)

func init() {
	rootCmd.AddCommand(patchCmd)

	patchCreateCmd.Flags().StringVar(&createFrom, "from", "", "Directory of replacement files")
	patchCreateCmd.Flags().StringArrayVar(&createDeleted, "delete", nil, "Host file deleted by the patch (repeatable)")
	patchCreateCmd.Flags().StringVar(&createID, "id", "", "Patch id (default: random UUID)")
	patchCreateCmd.Flags().StringVar(&createVersion, "version", "", "Patch version (default: content hash)")
	patchCreateCmd.Flags().StringVarP(&createDescription, "description", "m", "", "Patch description")
	patchCreateCmd.MarkFlagRequired("from")
	patchCmd.AddCommand(patchCreateCmd)

	patchCmd.AddCommand(patchListCmd)
	patchCmd.AddCommand(patchShowCmd)

	patchDeleteCmd.Flags().BoolVarP(&deleteSkipConfirm, "yes", "y", false, "Skip confirmation prompt")
	patchCmd.AddCommand(patchDeleteCmd)
}

func runPatchCreate(cmd *cobra.Command, args []string) error {
	from, err := filepath.Abs(createFrom)
	if err != nil {
		return err
	}
	if info, err := os.Stat(from); err != nil || !info.IsDir() {
		return fmt.Errorf("--from %s is not a directory", createFrom)
	}

	host, err := openHost()
	if err != nil {
		return err
	}

	deleted := make([]string, len(createDeleted))
	for i, d := range createDeleted {
		deleted[i] = common.StorePath(d)
	}

	p, err := patcher.FromDir(osfs.New(from), host, patcher.DirOptions{
		ID:          createID,
		Version:     createVersion,
		Description: createDescription,
		Deleted:     deleted,
	})
	if err != nil {
		return err
	}

	store, err := openStore(true)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.PutPatch(cmd.Context(), p); err != nil {
		return err
	}

	sets := p.FileSets()
	fmt.Fprintf(cmd.OutOrStdout(), "Created patch %s (version %s): %d added, %d modified, %d deleted\n",
		p.ID, p.Version, len(sets.Added), len(sets.Modified), len(sets.Deleted))
	return nil
}

func runPatchList(cmd *cobra.Command, args []string) error {
	store, err := openStore(false)
	if err != nil {
		return err
	}
	defer store.Close()

	patches, err := store.ListPatches(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(patches) == 0 {
		fmt.Fprintln(out, "No patches")
		return nil
	}
	printPatchList(out, patches)
	return nil
}

// printPatchList prints patches in git-log style
func printPatchList(out io.Writer, patches []*storage.Patch) {
	for _, p := range patches {
		fmt.Fprintf(out, "patch %s (version: %s)\n", p.ID, p.Version)
		fmt.Fprintf(out, "Date:   %s\n", p.CreatedAt.Format("Mon Jan 2 15:04:05 2006"))

		if p.Description != "" {
			fmt.Fprintln(out)
			for _, line := range strings.Split(p.Description, "\n") {
				fmt.Fprintf(out, "    %s\n", line)
			}
		}
		fmt.Fprintln(out)
	}
}

var statusLetters = map[storage.FileStatus]string{
	storage.StatusAdded:    "A",
	storage.StatusDeleted:  "D",
	storage.StatusModified: "M",
}

func runPatchShow(cmd *cobra.Command, args []string) error {
	store, err := openStore(false)
	if err != nil {
		return err
	}
	defer store.Close()

	p, err := store.GetPatch(cmd.Context(), args[0], false)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printPatchList(out, []*storage.Patch{p})
	for _, f := range p.Files {
		fmt.Fprintf(out, "%s\t%s\n", statusLetters[f.Status], f.Path)
	}
	return nil
}

func runPatchDelete(cmd *cobra.Command, args []string) error {
	id := args[0]
	out := cmd.OutOrStdout()

	if !deleteSkipConfirm {
		fmt.Fprintf(out, "This will permanently delete patch '%s'.\n", id)
		fmt.Fprint(out, "Continue? [y/N] ")

		reader := bufio.NewReader(cmd.InOrStdin())
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))

		if response != "y" && response != "yes" {
			fmt.Fprintln(out, "Delete cancelled")
			return nil
		}
	}

	store, err := openStore(false)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeletePatch(cmd.Context(), id); err != nil {
		return err
	}

	fmt.Fprintf(out, "Deleted patch %s\n", id)
	return nil
}
