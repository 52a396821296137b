package callback

import "runtime"

// Attacher scopes a foreign thread's entry into the managed runtime. The
// returned detach function must run on every exit path, including when the
// managed callback panics; the bridge enforces this with defer.
type Attacher interface {
	Attach() (detach func())
}

// OSThreadAttacher binds the invoking goroutine to its OS thread for the
// duration of the callback, the closest managed-runtime analogue of
// attaching a native thread. Attach is idempotent per thread in effect:
// nested Lock/Unlock pairs are balanced.
type OSThreadAttacher struct{}

// Attach locks the current goroutine to its OS thread.
func (OSThreadAttacher) Attach() (detach func()) {
	runtime.LockOSThread()
	return runtime.UnlockOSThread
}
