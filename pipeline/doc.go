// Package pipeline provides a synchronous, push-based dataflow pipeline.
//
// A pipeline is a tree of Stages. Items are pushed into the root and each
// Stage decides, synchronously and before returning, what to forward to the
// Stages it owns. Nothing runs concurrently inside a tree: the push for item
// N completes across every reachable Stage before item N+1 is read, so every
// Stage observes items in source order.
//
// # Stages
//
//   - Filter: forwards an item to its single child when a Predicate matches
//   - Broadcast: forwards every item to a fixed, ordered list of children
//   - Sink: writes every item to an io.Writer it does not own
//   - Discard: a Sink that drops everything
//
// # Lifecycle
//
// Constructors return unprimed Stages. Prime the root once the tree is
// built; priming walks the subtree children-first. Close walks the subtree
// post-order and runs each Stage's cleanup exactly once. A Stage whose push
// fails, or that receives a fault through InjectFault, runs its cleanup and
// re-raises the error to its caller.
//
// # Source
//
// A Source tails an append-only input: it seeks to the current end, reads
// whole lines as they appear, pushes each into the root, and sleeps for the
// poll interval when no complete line is available.
//
//	sink1 := pipeline.NewSink[string](os.Stdout)
//	sink2 := pipeline.NewSink[string](errLog)
//	root := pipeline.NewBroadcast([]pipeline.Stage[string]{
//	    pipeline.NewFilter(pipeline.Contains("python"), sink1),
//	    pipeline.NewFilter(pipeline.Contains("swig"), sink2),
//	})
//	cancel, done := pipeline.RunSource(file, root, 100*time.Millisecond)
//	defer cancel()
//	err := <-done
package pipeline
