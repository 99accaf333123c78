package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/punchcall/internal/listing"
	"github.com/verte-zerg/punchcall/internal/model"
	"github.com/verte-zerg/punchcall/internal/patterns"
	"github.com/verte-zerg/punchcall/internal/setsui"
)

var (
	setsShareBase    string
	setsGenerateName string
	setsGenerateSeed int64
	setsExportOut    string
	setsTextName     string
)

func newSetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sets",
		Short: "Browse and edit pattern sets",
		Args:  cobra.NoArgs,
		RunE:  runSetsBrowserCmd,
	}
	cmd.PersistentFlags().StringVar(&setsShareBase, "share-base", "", "link prefix for shared sets")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List pattern sets",
		Args:  cobra.NoArgs,
		RunE:  runSetsListCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <set>",
		Short: "Show the patterns of a set",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetsShowCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "create <name> [pattern...]",
		Short: "Create a set, e.g. create Jabs 1 1-1 1-2",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSetsCreateCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "rename <set> <name>",
		Short: "Rename a set",
		Args:  cobra.ExactArgs(2),
		RunE:  runSetsRenameCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <set>",
		Short: "Delete a set",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetsDeleteCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "add-pattern <set> <pattern>",
		Short: "Add a pattern such as 1-2-3",
		Args:  cobra.ExactArgs(2),
		RunE:  runSetsAddPatternCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "remove-pattern <set> <pattern>",
		Short: "Remove a pattern",
		Args:  cobra.ExactArgs(2),
		RunE:  runSetsRemovePatternCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "select <set>",
		Short: "Select the set used by sessions",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetsSelectCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "share <set>",
		Short: "Print a share link for a set",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetsShareCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "import <link-or-token>",
		Short: "Import a shared set",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetsImportCmd,
	})

	generateCmd := &cobra.Command{
		Use:   "generate <preset>",
		Short: "Generate a random set (" + strings.Join(patterns.PresetNames(), ", ") + ")",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetsGenerateCmd,
	}
	generateCmd.Flags().StringVar(&setsGenerateName, "name", "", "set name (default: Random <preset>)")
	generateCmd.Flags().Int64Var(&setsGenerateSeed, "seed", 0, "random seed (0: random)")
	cmd.AddCommand(generateCmd)

	exportCmd := &cobra.Command{
		Use:   "export [set...]",
		Short: "Export sets as YAML (default: all user sets)",
		RunE:  runSetsExportCmd,
	}
	exportCmd.Flags().StringVarP(&setsExportOut, "output", "o", "", "output file (default: stdout)")
	cmd.AddCommand(exportCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "import-file <file.yaml>",
		Short: "Import sets from a YAML export",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetsImportFileCmd,
	})

	importTextCmd := &cobra.Command{
		Use:   "import-text <file>",
		Short: "Import a set from a text file with one pattern per line",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetsImportTextCmd,
	}
	importTextCmd.Flags().StringVar(&setsTextName, "name", "", "set name (default: file name)")
	cmd.AddCommand(importTextCmd)

	return cmd
}

func runSetsBrowserCmd(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()
	selected, err := a.selection(ctx)
	if err != nil {
		return err
	}
	m := setsui.NewModel(a.lib, selected, setsui.Options{
		ShareBase: setsShareBase,
		OnSelect: func(id string) error {
			return a.saveSelection(ctx, id)
		},
	})
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run sets TUI: %w", err)
	}
	return nil
}

func runSetsListCmd(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(a *app) error {
		selected, err := a.selection(cmd.Context())
		if err != nil {
			return err
		}
		return listing.WriteSets(cmd.OutOrStdout(), a.lib.Sets(), selected)
	})
}

func runSetsShowCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		set, err := a.lib.Find(args[0])
		if err != nil {
			return err
		}
		return listing.WriteSet(cmd.OutOrStdout(), set)
	})
}

func runSetsCreateCmd(cmd *cobra.Command, args []string) error {
	list, err := parsePatterns(args[1:])
	if err != nil {
		return err
	}
	return withApp(cmd, func(a *app) error {
		set, err := a.lib.Create(cmd.Context(), args[0], list)
		if err != nil {
			return err
		}
		return printf(cmd, "Created %q (%s)\n", set.Name, set.ID)
	})
}

func runSetsRenameCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		set, err := a.lib.Find(args[0])
		if err != nil {
			return err
		}
		return a.lib.Rename(cmd.Context(), set.ID, args[1])
	})
}

func runSetsDeleteCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		ctx := cmd.Context()
		set, err := a.lib.Find(args[0])
		if err != nil {
			return err
		}
		selected, err := a.selection(ctx)
		if err != nil {
			return err
		}
		next, err := a.lib.Delete(ctx, set.ID, selected)
		if err != nil {
			return err
		}
		if next != selected {
			if err := a.saveSelection(ctx, next); err != nil {
				return err
			}
			logErrf("Selected set is now %s\n", next)
		}
		return printf(cmd, "Deleted %q\n", set.Name)
	})
}

func runSetsAddPatternCmd(cmd *cobra.Command, args []string) error {
	return editPattern(cmd, args, (*patterns.Library).AddPattern)
}

func runSetsRemovePatternCmd(cmd *cobra.Command, args []string) error {
	return editPattern(cmd, args, (*patterns.Library).RemovePattern)
}

type patternEdit func(l *patterns.Library, ctx context.Context, id string, p model.Pattern) error

func editPattern(cmd *cobra.Command, args []string, edit patternEdit) error {
	p, err := model.ParsePattern(args[1])
	if err != nil {
		return err
	}
	return withApp(cmd, func(a *app) error {
		set, err := a.lib.Find(args[0])
		if err != nil {
			return err
		}
		return edit(a.lib, cmd.Context(), set.ID, p)
	})
}

func runSetsSelectCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		set, err := a.lib.Find(args[0])
		if err != nil {
			return err
		}
		if err := a.saveSelection(cmd.Context(), set.ID); err != nil {
			return err
		}
		return printf(cmd, "Selected %q\n", set.Name)
	})
}

func runSetsShareCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		set, err := a.lib.Find(args[0])
		if err != nil {
			return err
		}
		token, err := patterns.EncodeShare(set)
		if err != nil {
			return err
		}
		return printf(cmd, "%s\n", patterns.ShareLink(setsShareBase, token))
	})
}

func runSetsImportCmd(cmd *cobra.Command, args []string) error {
	decoded, err := patterns.DecodeShare(patterns.ShareTokenFromLink(args[0]))
	if err != nil {
		return err
	}
	return withApp(cmd, func(a *app) error {
		return importSets(cmd, a, []model.PatternSet{decoded})
	})
}

func runSetsGenerateCmd(cmd *cobra.Command, args []string) error {
	gen := patterns.NewGenerator()
	if setsGenerateSeed != 0 {
		gen = patterns.NewSeededGenerator(setsGenerateSeed)
	}
	set, err := gen.GenerateSet(args[0], setsGenerateName)
	if err != nil {
		return err
	}
	return withApp(cmd, func(a *app) error {
		return importSets(cmd, a, []model.PatternSet{set})
	})
}

func runSetsExportCmd(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(a *app) error {
		var sets []model.PatternSet
		if len(args) == 0 {
			for _, set := range a.lib.Sets() {
				if !set.IsDefault {
					sets = append(sets, set)
				}
			}
		}
		for _, ref := range args {
			set, err := a.lib.Find(ref)
			if err != nil {
				return err
			}
			sets = append(sets, set)
		}
		if setsExportOut == "" {
			return patterns.ExportYAML(cmd.OutOrStdout(), sets)
		}
		f, err := os.Create(setsExportOut)
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		if err := patterns.ExportYAML(f, sets); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write export file: %w", err)
		}
		logErrln("Wrote", len(sets), "sets to", setsExportOut)
		return nil
	})
}

func runSetsImportFileCmd(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close after reading.
			_ = cerr
		}
	}()
	sets, err := patterns.ReadYAML(f)
	if err != nil {
		return err
	}
	return withApp(cmd, func(a *app) error {
		return importSets(cmd, a, sets)
	})
}

func runSetsImportTextCmd(cmd *cobra.Command, args []string) error {
	list, err := patterns.LoadText(args[0])
	if err != nil {
		return err
	}
	name := setsTextName
	if name == "" {
		base := filepath.Base(args[0])
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return withApp(cmd, func(a *app) error {
		return importSets(cmd, a, []model.PatternSet{{Name: name, Patterns: list}})
	})
}

func importSets(cmd *cobra.Command, a *app, sets []model.PatternSet) error {
	for _, set := range sets {
		imported, err := a.lib.Import(cmd.Context(), set)
		if err != nil {
			return fmt.Errorf("failed to import %q: %w", set.Name, err)
		}
		if err := printf(cmd, "Imported %q with %d patterns (%s)\n", imported.Name, len(imported.Patterns), imported.ID); err != nil {
			return err
		}
	}
	return nil
}

func parsePatterns(args []string) ([]model.Pattern, error) {
	list := make([]model.Pattern, 0, len(args))
	for _, arg := range args {
		p, err := model.ParsePattern(arg)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, nil
}

// withApp runs fn with an app that logs to stderr.
func withApp(cmd *cobra.Command, fn func(a *app) error) error {
	a, err := openApp(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printf(cmd *cobra.Command, format string, args ...any) error {
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
