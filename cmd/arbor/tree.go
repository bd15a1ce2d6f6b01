package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/cli"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/presentation/tui"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/tree"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Inspect and edit tree files offline",
	Long: `Works on a YAML or JSON tree file directly, without a running server.
A tree file is either a list of elements or an object with an "elements" key.`,
}

var treeShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print the tree as a nested outline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		elements, err := cli.ReadElements(args[0])
		if err != nil {
			return err
		}
		title := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		return printOutline(cmd.OutOrStdout(), title, elements, isTerminal(cmd.OutOrStdout()))
	},
}

var treeValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check the tree for broken invariants",
	Long: `Reports duplicate, dangling or misowned children, orphans and cycles.
With --repair, the repaired tree is written back to the file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		elements, err := cli.ReadElements(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		_, verr := tree.New(elements)
		if verr == nil {
			fmt.Fprintln(out, "Tree is valid! ✅")
			return nil
		}

		repair, _ := cmd.Flags().GetBool("repair")
		if !repair {
			return fmt.Errorf("validation failed: %w", verr)
		}

		store := tree.Unchecked(elements)
		report := store.Repair()
		if err := cli.WriteElements(args[0], store.Snapshot()); err != nil {
			return err
		}
		fmt.Fprintf(out, "Repaired %s (%v)\n", args[0], verr)
		return writeJSON(out, report)
	},
}

var treeGraphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Export the tree as a Mermaid diagram",
	Long:  `Outputs a Mermaid diagram (graph TD) of the tree, optionally highlighting a drag subject and its target container.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		elements, err := cli.ReadElements(args[0])
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if cmd.Flags().Changed("subject") || cmd.Flags().Changed("target") {
			subject, _ := cmd.Flags().GetString("subject")
			target, _ := cmd.Flags().GetString("target")
			overlay = &graph.Overlay{SubjectID: subject, TargetID: target}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(elements, overlay))
		return nil
	},
}

var treeMoveCmd = &cobra.Command{
	Use:   "move <file> <subject> [container]",
	Short: "Move an element into a container",
	Long: `Commits a move the same way a drop would. Without a container the element goes to the
root list. Without --index or --before it is appended.`,
	Args: cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		target := domain.Target{ContainerID: domain.RootID, InsertIndex: math.MaxInt}
		if len(args) == 3 {
			target.ContainerID = args[2]
		}
		if cmd.Flags().Changed("index") {
			target.InsertIndex, _ = cmd.Flags().GetInt("index")
		}
		target.InsertBeforeID, _ = cmd.Flags().GetString("before")

		return editTree(cmd, args[0], func(eng *arbor.Engine) (any, error) {
			return eng.MoveElement(cmd.Context(), args[1], target)
		})
	},
}

var treeReconcileCmd = &cobra.Command{
	Use:   "reconcile <file> <parent> <child>...",
	Short: "Fold an observed child order back into the tree",
	Long:  `Use "root" as the parent to reconcile the root list.`,
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent := args[1]
		if parent == "root" {
			parent = domain.RootID
		}
		observed := args[2:]

		return editTree(cmd, args[0], func(eng *arbor.Engine) (any, error) {
			return eng.Reconcile(cmd.Context(), parent, observed)
		})
	},
}

// editTree loads path into an engine, applies fn, prints its result and writes the
// tree back when it changed and --write is set.
func editTree(cmd *cobra.Command, path string, fn func(*arbor.Engine) (any, error)) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	elements, err := cli.ReadElements(path)
	if err != nil {
		return err
	}
	eng, err := arbor.New(elements, cli.EngineOptions(cfg, logger, nil)...)
	if err != nil {
		return err
	}

	result, err := fn(eng)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := writeJSON(out, result); err != nil {
		return err
	}

	if eng.Version() == 0 {
		return nil
	}
	if write, _ := cmd.Flags().GetBool("write"); write {
		return cli.WriteElements(path, eng.GetSnapshot())
	}
	return cli.EncodeElements(out, eng.GetSnapshot(), false)
}

func printOutline(w io.Writer, title string, elements []domain.Element, rich bool) error {
	markdown := tui.Outline(title, elements)
	if !rich {
		_, err := fmt.Fprint(w, markdown)
		return err
	}

	tui.PrintBanner(w)
	rendered, err := tui.NewRenderer()(markdown)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, rendered)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func init() {
	rootCmd.AddCommand(treeCmd)
	treeCmd.AddCommand(treeShowCmd, treeValidateCmd, treeGraphCmd, treeMoveCmd, treeReconcileCmd)

	treeValidateCmd.Flags().Bool("repair", false, "Repair the tree and write it back to the file")

	treeGraphCmd.Flags().String("subject", "", "Element to mark as the drag subject")
	treeGraphCmd.Flags().String("target", "", "Container to mark as the drop target")

	treeMoveCmd.Flags().Int("index", 0, "Insertion index in the container")
	treeMoveCmd.Flags().String("before", "", "Sibling to insert before")

	for _, c := range []*cobra.Command{treeMoveCmd, treeReconcileCmd} {
		c.Flags().BoolP("write", "w", false, "Write the result back to the file instead of printing it")
	}
}
