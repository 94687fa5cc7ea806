// Command lexdump loads a serialized editor document and prints its
// rendered buffer and node tree, for inspecting documents produced by
// a host outside of a running editor.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	editorcore "github.com/corelex/editorcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var showTree bool
	var showCache bool

	cmd := &cobra.Command{
		Use:   "lexdump <file.json>",
		Short: "Dump a serialized editor document's rendered buffer and node tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], showTree, showCache)
		},
	}
	cmd.Flags().BoolVar(&showTree, "tree", true, "print the node tree")
	cmd.Flags().BoolVar(&showCache, "cache", false, "print range-cache entries after a full rebuild")
	return cmd
}

func run(path string, showTree, showCache bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	state, err := editorcore.FromJSON(data, nil)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	host := editorcore.NewNopHost()
	editor := editorcore.NewEditor(host)
	if err := editor.SetEditorState(state); err != nil {
		return fmt.Errorf("loading document into editor: %w", err)
	}

	fmt.Println("--- buffer ---")
	fmt.Println(host.TextStorage().String())

	if showTree {
		fmt.Println("--- tree ---")
		dumpNode(editor.GetEditorState(), editorcore.RootKey, 0)
	}

	if showCache {
		fmt.Println("--- range cache ---")
		dumpCache(editor.GetEditorState())
	}
	return nil
}

// dumpNode recursively prints key, kind, and text content with
// increasing indentation, one line per node.
func dumpNode(state *editorcore.EditorState, key editorcore.NodeKey, depth int) {
	n, ok := state.GetNode(key)
	if !ok {
		return
	}
	indent := strings.Repeat("  ", depth)
	switch v := n.(type) {
	case *editorcore.TextNode:
		fmt.Printf("%s%s %q %q\n", indent, key, v.Type(), v.Text())
	default:
		fmt.Printf("%s%s %q\n", indent, key, n.Type())
	}
	for _, c := range editorcore.GetChildren(n) {
		dumpNode(state, c, depth+1)
	}
}

func dumpCache(state *editorcore.EditorState) {
	cache := editorcore.NewRangeCache()
	editorcore.RebuildRangeCacheEntries(state, cache)
	editorcore.RebuildDFSOrder(state, cache)
	for _, key := range cache.DFSOrder() {
		item, ok := cache.Get(key)
		if !ok {
			continue
		}
		loc, _ := cache.ActualLocation(key)
		fmt.Printf("%s loc=%d len=%d\n", key, loc, item.Length())
	}
	if orphans := cache.OrphanedLiveIndexes(); len(orphans) > 0 {
		fmt.Printf("warning: %d live index(es) unclaimed by any item: %v\n", len(orphans), orphans)
	}
}
