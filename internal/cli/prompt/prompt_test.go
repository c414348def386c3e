package prompt

import (
	"errors"
	"fmt"
	"testing"

	"github.com/manifoldco/promptui"
)

func TestWrapError(t *testing.T) {
	if wrapError(nil) != nil {
		t.Error("nil should stay nil")
	}
	for _, err := range []error{promptui.ErrInterrupt, promptui.ErrEOF, fmt.Errorf("run: %w", promptui.ErrAbort)} {
		if got := wrapError(err); !errors.Is(got, ErrAborted) {
			t.Errorf("wrapError(%v) = %v, want ErrAborted", err, got)
		}
	}
	other := errors.New("boom")
	if got := wrapError(other); got != other {
		t.Errorf("wrapError(other) = %v", got)
	}
}

func TestFuzzyContains(t *testing.T) {
	tests := []struct {
		haystack, needle string
		want             bool
	}{
		{"Documents", "", true},
		{"Documents", "doc", true},
		{"Documents", "dmt", true},
		{"Documents", "tmd", false},
		{"a.txt", "TXT", true},
	}
	for _, tt := range tests {
		if got := fuzzyContains(tt.haystack, tt.needle); got != tt.want {
			t.Errorf("fuzzyContains(%q, %q) = %v", tt.haystack, tt.needle, got)
		}
	}
}
