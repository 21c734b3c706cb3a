package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var (
	spriteOutput  string
	clearCatalog  bool
	warmupLimit   int
	warmupWorkers int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every Pokémon in the catalog.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		entries, err := a.catalog.List(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, e := range entries {
			id, ok := e.ID()
			if !ok {
				continue
			}
			fmt.Fprintf(w, "%d\t%s\n", id, e.Name)
		}
		return w.Flush()
	},
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one Pokémon's catalog record.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		d, err := a.catalog.Details(cmd.Context(), id)
		if err != nil {
			return err
		}

		types := make([]string, 0, len(d.Types))
		for _, t := range d.Types {
			types = append(types, t.Type.Name)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "#%d %s\n", d.ID, d.Name)
		fmt.Fprintf(out, "types:  %s\n", strings.Join(types, ", "))
		fmt.Fprintf(out, "height: %d\n", d.Height)
		fmt.Fprintf(out, "weight: %d\n", d.Weight)
		fmt.Fprintf(out, "sprite: %s\n", d.Sprites.FrontDefault)
		return nil
	},
}

var spriteCmd = &cobra.Command{
	Use:   "sprite <id|url>",
	Short: "Resolve a sprite through the cache and optionally write it out.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ref, err := a.spriteReference(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		s, ok := a.sprites.Resolve(cmd.Context(), ref)
		if !ok {
			return fmt.Errorf("sprite unavailable: %s", ref)
		}

		if spriteOutput != "" {
			if err := os.WriteFile(spriteOutput, s.Data, 0644); err != nil {
				return fmt.Errorf("failed to write sprite: %w", err)
			}
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %dx%d %d bytes\n", a.sprites.Key(ref), s.Width, s.Height, len(s.Data))
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every cached sprite.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		removed := a.sprites.Clear()
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d sprites\n", removed)

		if clearCatalog {
			if err := a.store.Purge(); err != nil {
				return fmt.Errorf("failed to purge catalog store: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "catalog responses purged")
		}
		return nil
	},
}

var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Print the configured sprite size.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		fmt.Fprintln(cmd.OutOrStdout(), a.sprites.SpriteSize())
		return nil
	},
}

var warmupCmd = &cobra.Command{
	Use:   "warmup",
	Short: "Prefetch catalog sprites into the disk cache.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		workers := warmupWorkers
		if workers <= 0 {
			workers = a.cfg.WarmupWorkers
		}

		refs, err := a.catalogSprites(cmd.Context(), warmupLimit)
		if err != nil {
			return err
		}
		resolved := a.sprites.Warmup(cmd.Context(), refs, workers)
		fmt.Fprintf(cmd.OutOrStdout(), "resolved %d of %d sprites\n", resolved, len(refs))
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the sprite cache.",
}

var cacheLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List sprites stored on disk.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		entries, err := a.sprites.Entries()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%d\t%s\n", e.Key, e.Size, e.ModTime.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintf(w, "%d sprites\n", len(entries))
		return w.Flush()
	},
}

func init() {
	spriteCmd.Flags().StringVarP(&spriteOutput, "output", "o", "", "write the decoded PNG to this file")
	clearCmd.Flags().BoolVar(&clearCatalog, "catalog", false, "also purge cached PokeAPI responses")
	warmupCmd.Flags().IntVar(&warmupLimit, "limit", 0, "number of catalog entries to prefetch (0 for all)")
	warmupCmd.Flags().IntVar(&warmupWorkers, "workers", 0, "concurrent fetches (default $WARMUP_WORKERS)")

	cacheCmd.AddCommand(cacheLsCmd)
}
