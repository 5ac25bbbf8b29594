// Package thread pins work to the main OS thread.
// Window and GL context calls need it on macOS.
// See: https://github.com/golang/go/wiki/LockOSThread
package thread

import (
	"runtime"

	"github.com/faiface/mainthread"
)

var isMacOs = runtime.GOOS == "darwin"

// MainWrapMaybe runs f with a main thread call queue.
// Enabled for macOS only.
func MainWrapMaybe(f func()) {
	if isMacOs {
		mainthread.Run(f)
	} else {
		f()
	}
}

// MainMaybe calls f on the main thread.
// Enabled for macOS only.
func MainMaybe(f func()) {
	if isMacOs {
		mainthread.Call(f)
	} else {
		f()
	}
}

// MainErr is MainMaybe for calls that fail.
func MainErr(f func() error) (err error) {
	MainMaybe(func() { err = f() })
	return err
}
