package shutdown

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestRegistry_PriorityOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	record := func(name string) Func {
		return func(context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	r.Register("store", 20, record("store"))
	r.Register("logs", 0, record("logs"))
	r.Register("poller", 10, record("poller"))

	if errs := r.Shutdown(context.Background()); errs != nil {
		t.Fatalf("Shutdown() errors: %v", errs)
	}
	want := []string{"logs", "poller", "store"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("execution order = %v, want %v", order, want)
	}
}

func TestRegistry_CollectsErrorsAndRunsAll(t *testing.T) {
	r := NewRegistry()
	ran := 0
	r.Register("a", 0, func(context.Context) error { ran++; return errors.New("a failed") })
	r.Register("b", 1, func(context.Context) error { ran++; return nil })
	r.Register("c", 2, func(context.Context) error { ran++; return errors.New("c failed") })

	errs := r.Shutdown(context.Background())
	if ran != 3 {
		t.Errorf("ran %d handlers, want all 3", ran)
	}
	if len(errs) != 2 {
		t.Errorf("errors = %v, want 2", errs)
	}
}

func TestRegistry_SecondShutdownNoop(t *testing.T) {
	r := NewRegistry()
	ran := 0
	r.Register("a", 0, func(context.Context) error { ran++; return nil })

	r.Shutdown(context.Background())
	r.Shutdown(context.Background())
	if ran != 1 {
		t.Errorf("handler ran %d times, want 1", ran)
	}
}

func TestRegistry_RegisterAfterShutdownIgnored(t *testing.T) {
	r := NewRegistry()
	r.Shutdown(context.Background())
	r.Register("late", 0, func(context.Context) error { return nil })
	if r.Count() != 0 {
		t.Error("late registration must be ignored")
	}
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register("b", 5, func(context.Context) error { return nil })
	r.Register("a", 1, func(context.Context) error { return nil })

	if got := r.Names(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Names() = %v", got)
	}
}
