package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/huangsam/svncoord/internal/contract"
	"github.com/huangsam/svncoord/internal/sandbox"
	"github.com/huangsam/svncoord/schema"
	"github.com/spf13/cobra"
)

// author returns the configured author or the sandbox user.
func author() string {
	if cfg.Author != "" {
		return cfg.Author
	}
	return state.User()
}

// repositoryPath resolves url to its repository and the path below the root.
func repositoryPath(url string) (*sandbox.Repository, string, error) {
	repo, err := state.Repository(url)
	if err != nil {
		return nil, "", err
	}
	return repo, strings.Trim(strings.TrimPrefix(url, repo.RootURL()), "/"), nil
}

// workingCopyPath resolves a local path to its working copy and the path below the root.
func workingCopyPath(local string) (*sandbox.WorkingCopy, string, error) {
	wc, err := state.WorkingCopy(local)
	if err != nil {
		return nil, "", err
	}
	return wc, contract.RelativePath(wc.Root(), strings.TrimSuffix(local, "/")), nil
}

// sandboxRun runs fn and saves the state when it succeeds.
func sandboxRun(what string, fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		if err := fn(cmd, args); err != nil {
			contract.LogFatal(what, err)
		}
		saveState()
	}
}

// sandboxCmd groups the commands that build the state file.
var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Create repositories and edit working copies in the state file",
	Long: `Manage the repositories and working copies that the other commands act on.

The state lives in a YAML file (--state, default svncoord-state.yaml). URLs use
any scheme, for example sandbox://repo; working-copy paths are plain paths
such as /wc.

Examples:
  svncoord sandbox init sandbox://repo
  svncoord sandbox import sandbox://repo trunk/a.txt=hello branches/ -m "Initial import"
  svncoord sandbox copy sandbox://repo/trunk sandbox://repo/branches/b -m "Branch"
  svncoord sandbox checkout sandbox://repo/trunk /wc
  svncoord sandbox write /wc/a.txt "hello world"
  svncoord sandbox status`,
}

var sandboxInitCmd = &cobra.Command{
	Use:     "init ROOT-URL",
	Short:   "Create an empty repository",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: sandboxRun("Cannot create repository", func(_ *cobra.Command, args []string) error {
		repo, err := state.CreateRepository(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Created repository %s (uuid %s)\n", repo.RootURL(), repo.UUID())
		return nil
	}),
}

var sandboxImportCmd = &cobra.Command{
	Use:   "import URL PATH=CONTENT...",
	Short: "Commit files below URL in a single revision",
	Long: `Commit files directly to the repository. Each argument is a path relative to
URL and its content; a path ending with a slash creates an empty directory.`,
	Args:    cobra.MinimumNArgs(2),
	PreRunE: sharedSetupWrapper,
	Run: sandboxRun("Cannot import", func(_ *cobra.Command, args []string) error {
		repo, base, err := repositoryPath(args[0])
		if err != nil {
			return err
		}
		files := make(map[string]string, len(args)-1)
		for _, arg := range args[1:] {
			p, content, _ := strings.Cut(arg, "=")
			if base != "" {
				p = base + "/" + p
			}
			files[p] = content
		}
		rev, err := repo.Import(author(), cfg.Message, files)
		if err != nil {
			return err
		}
		fmt.Printf("Committed revision %d.\n", rev)
		return nil
	}),
}

var sandboxCopyCmd = &cobra.Command{
	Use:     "copy SRC-URL DST-URL",
	Short:   "Copy a node within its repository, for example to create a branch",
	Args:    cobra.ExactArgs(2),
	PreRunE: sharedSetupWrapper,
	Run: sandboxRun("Cannot copy", func(cmd *cobra.Command, args []string) error {
		repo, src, err := repositoryPath(args[0])
		if err != nil {
			return err
		}
		dstRepo, dst, err := repositoryPath(args[1])
		if err != nil {
			return err
		}
		if dstRepo != repo {
			return fmt.Errorf("'%s' and '%s' are in different repositories", args[0], args[1])
		}
		srcRev, _ := cmd.Flags().GetInt64("revision")
		if srcRev < 0 {
			srcRev = repo.Head()
		}
		rev, err := repo.Copy(author(), cfg.Message, src, srcRev, dst)
		if err != nil {
			return err
		}
		fmt.Printf("Committed revision %d.\n", rev)
		return nil
	}),
}

var sandboxCheckoutCmd = &cobra.Command{
	Use:     "checkout URL LOCAL-PATH",
	Short:   "Create a working copy of URL",
	Args:    cobra.ExactArgs(2),
	PreRunE: sharedSetupWrapper,
	Run: sandboxRun("Cannot check out", func(cmd *cobra.Command, args []string) error {
		rev, _ := cmd.Flags().GetInt64("revision")
		wc, err := state.Checkout(rootCtx, args[0], rev, args[1])
		if err != nil {
			return err
		}
		entry, err := wc.Entry("")
		if err != nil {
			return err
		}
		fmt.Printf("Checked out revision %d into %s.\n", entry.Revision, wc.Root())
		return nil
	}),
}

var sandboxWriteCmd = &cobra.Command{
	Use:     "write LOCAL-FILE CONTENT",
	Short:   "Replace the working text of a versioned file",
	Args:    cobra.ExactArgs(2),
	PreRunE: sharedSetupWrapper,
	Run: sandboxRun("Cannot write", func(_ *cobra.Command, args []string) error {
		wc, rel, err := workingCopyPath(args[0])
		if err != nil {
			return err
		}
		return wc.Write(rel, args[1])
	}),
}

var sandboxAddCmd = &cobra.Command{
	Use:     "add LOCAL-PATH [CONTENT]",
	Short:   "Schedule a new file or directory for addition",
	Args:    cobra.RangeArgs(1, 2),
	PreRunE: sharedSetupWrapper,
	Run: sandboxRun("Cannot add", func(cmd *cobra.Command, args []string) error {
		wc, rel, err := workingCopyPath(args[0])
		if err != nil {
			return err
		}
		kind := schema.FileKind
		if dir, _ := cmd.Flags().GetBool("dir"); dir {
			kind = schema.DirKind
		}
		var content string
		if len(args) == 2 {
			content = args[1]
		}
		return wc.Add(rel, kind, content)
	}),
}

var sandboxRemoveCmd = &cobra.Command{
	Use:     "rm LOCAL-PATH",
	Short:   "Schedule a versioned node for deletion",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: sandboxRun("Cannot remove", func(_ *cobra.Command, args []string) error {
		wc, rel, err := workingCopyPath(args[0])
		if err != nil {
			return err
		}
		return wc.Remove(rel)
	}),
}

var sandboxPropsetCmd = &cobra.Command{
	Use:     "propset NAME [VALUE] LOCAL-PATH",
	Short:   "Set or delete a versioned property",
	Args:    cobra.RangeArgs(2, 3),
	PreRunE: sharedSetupWrapper,
	Run: sandboxRun("Cannot set property", func(cmd *cobra.Command, args []string) error {
		wc, rel, err := workingCopyPath(args[len(args)-1])
		if err != nil {
			return err
		}
		var value *string
		if del, _ := cmd.Flags().GetBool("delete"); !del {
			if len(args) != 3 {
				return fmt.Errorf("a value is required unless --delete is given")
			}
			value = &args[1]
		}
		return wc.SetProperty(rel, args[0], value)
	}),
}

var sandboxStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "List repositories, working copies and their local changes",
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		for _, repo := range state.Repositories() {
			fmt.Printf("Repository %s at r%d\n", repo.RootURL(), repo.Head())
		}
		for _, wc := range state.WorkingCopies() {
			entry, err := wc.Entry("")
			if err != nil {
				contract.LogWarn("Cannot read working copy", err)
				continue
			}
			fmt.Printf("Working copy %s of %s@%d\n", wc.Root(), entry.URL, entry.Revision)
			for _, line := range wc.Status() {
				fmt.Printf("  %s\n", line)
			}
		}
	},
}

var sandboxLogCmd = &cobra.Command{
	Use:     "log ROOT-URL",
	Short:   "Print the revisions of a repository",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, args []string) {
		repo, err := state.Repository(args[0])
		if err != nil {
			contract.LogFatal("Cannot read log", err)
		}
		for _, e := range repo.Log() {
			_, _ = fmt.Fprintf(os.Stdout, "r%d | %s | %s | %s\n", e.Revision, e.Author, e.Date.Format(contract.DateTimeFormat),
				strings.SplitN(e.Message, "\n", 2)[0])
		}
	},
}
