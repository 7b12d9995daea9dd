package scheduler

// Option configures a job at submission.
type Option func(*jobOptions)

type jobOptions struct {
	name   string
	lazy   bool
	onDone []func(err error)
}

// WithName labels the job in logs.
func WithName(name string) Option {
	return func(o *jobOptions) {
		o.name = name
	}
}

// Lazy keeps the job StateNew until Start, Join or Await is called.
func Lazy() Option {
	return func(o *jobOptions) {
		o.lazy = true
	}
}

// OnDone registers fn to run once the job and its children are finished,
// right before Done is closed. It runs even when the job was cancelled before
// its body started, with the job's final Err.
func OnDone(fn func(err error)) Option {
	return func(o *jobOptions) {
		if fn != nil {
			o.onDone = append(o.onDone, fn)
		}
	}
}
