package thread

import (
	"errors"
	"testing"
)

func TestMainThread(t *testing.T) {
	value := 0
	MainWrapMaybe(func() {
		MainMaybe(func() { value = 1 })
		if err := MainErr(func() error { return errors.New("x") }); err == nil {
			t.Error("error lost")
		}
	})
	if value != 1 {
		t.Errorf("wrong value %v", value)
	}
}
