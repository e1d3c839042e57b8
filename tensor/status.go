package tensor

// Status is delivered to an Entry's Callback exactly once. Today only the
// happy path (OK) and post-enqueue failure delivery are modeled; in-flight
// errors before enqueue are fatal exceptions propagated on the submission
// thread instead (see internal/xerrors).
type Status struct {
	err error
}

// OK is the successful terminal status.
var OK = Status{}

// Failed builds a non-OK status carrying the cause.
func Failed(err error) Status {
	return Status{err: err}
}

func (s Status) Ok() bool {
	return s.err == nil
}

func (s Status) Err() error {
	return s.err
}

func (s Status) String() string {
	if s.err == nil {
		return "OK"
	}
	return s.err.Error()
}

// Callback receives the terminal Status of one Entry's participation in a
// batch. The engine invokes it exactly once, from the finalizer.
type Callback func(Status)
