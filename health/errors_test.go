package health

import (
	"context"
	"errors"
	"testing"
)

func TestErrors_Wrapping(t *testing.T) {
	agg := NewAggregator()

	if _, err := agg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check(missing) error = %v, want ErrCheckerNotFound", err)
	}

	for _, err := range []error{ErrCheckFailed, ErrCheckTimeout, ErrCheckerNotFound} {
		if err.Error()[:len("health: ")] != "health: " {
			t.Errorf("%q should carry the package prefix", err)
		}
	}
}
