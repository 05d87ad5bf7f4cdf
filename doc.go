// Package treemirror mirrors a storage folder into an in-memory tree of pooled
// nodes and runs prioritised, chainable tasks against it.
//
// A Service wires the pieces together: the pool registry and its pulse, the
// tree synchronizer guarded by the priority lock, the task scheduler, the
// sweep event bus and the root handle store.
//
//	srv, err := treemirror.New(treemirror.WithConfig(cfg))
//	if err != nil { ... }
//	if err = srv.Init(ctx, "file:///srv/data"); err != nil { ... }
//	srv.Start(ctx)
//	defer srv.Shutdown(ctx)
//
// Install downloads an archive and extracts it into the tree as one chained
// pair of tasks.
package treemirror
