package driver

import (
	"golang.org/x/sync/errgroup"

	"github.com/jfecher/exc/internal/ids"
	"github.com/jfecher/exc/internal/imports"
	"github.com/jfecher/exc/internal/query"
)

// discoverFiles performs the two-phase "discover, then compile" walk
// documented in SPEC_FULL.md §4. transitive_files is only a well-defined
// memoized query once every file it might reach is already a file the
// Source Store knows about; this function gets the store to that state.
// Compile runs it at the start of every compile, ahead of
// transitive_files.
//
// Grounded on find_changed_files.rs's Finder: breadth-first layers, each
// layer's imports_of calls run concurrently (a file with many imports
// benefits most), and the walk stops once a layer finds nothing new —
// reimplemented with errgroup in place of the original's rayon scope +
// scc queue, since Go has no persistent work-stealing queue in std or in
// this pack worth reaching for over a plain BFS frontier.
func discoverFiles(engine *query.Engine, root ids.FileId) ([]ids.FileId, error) {
	seen := map[ids.FileId]bool{root: true}
	order := []ids.FileId{root}
	frontier := []ids.FileId{root}

	for len(frontier) > 0 {
		edgeSets := make([][]imports.Edge, len(frontier))

		g := new(errgroup.Group)
		for i, file := range frontier {
			i, file := i, file
			g.Go(func() error {
				cx := engine.NewWorker()
				result, err := query.Get(cx, imports.ImportsOfDef, file)
				if err != nil {
					return err
				}
				edgeSets[i] = result.Edges
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		var next []ids.FileId
		for _, edges := range edgeSets {
			for _, edge := range edges {
				if !seen[edge.Target] {
					seen[edge.Target] = true
					order = append(order, edge.Target)
					next = append(next, edge.Target)
				}
			}
		}
		frontier = next
	}

	return order, nil
}
