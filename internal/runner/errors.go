package runner

import "errors"

// Failure markers for the three ways a task execution can fail. Collaborator
// implementations wrap their errors with the matching marker so outcomes can
// be classified with errors.Is.
var (
	// ErrTransport marks fetch failures: network, DNS, timeout, or a
	// non-success HTTP status.
	ErrTransport = errors.New("transport error")
	// ErrTransform marks transformation command failures or unreadable
	// output.
	ErrTransform = errors.New("transform error")
	// ErrPersist marks durable-write failures of the state store.
	ErrPersist = errors.New("persist error")
)
