// Package memo provides persistent memoization for expensive, idempotent calls.
//
// A Memo wraps a function and stores each successful result under a key
// derived from the canonical JSON form of the call's arguments. Results are
// kept in a Store; the production Store is a Shelf, one SQLite file per
// namespace, so repeated or interrupted runs read earlier results back
// instead of calling the wrapped function again.
//
// # Namespaces
//
// Every Memo is bound to a namespace that names the wrapped function. A
// Shelf records the namespace it was created for and refuses to open under
// any other, and a Scope hands out at most one Shelf per namespace:
//
//	err := memo.WithScope(ctx, ".cache", func(s *memo.Scope) error {
//	    getNotes, err := memo.Bind(ctx, s, "openreview.get_notes", client.GetNotes)
//	    if err != nil {
//	        return err
//	    }
//	    notes, err := getNotes.Call(ctx, query)
//	    ...
//	})
//
// # Errors
//
// Errors returned by the wrapped function are passed through and never
// stored. Failures of the backing store, including entries that cannot be
// decoded, are reported as *StorageError and match ErrStorage.
package memo
