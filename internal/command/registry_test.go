package command

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ictlabs/watchctl/internal/testutil/testlog"
)

func TestResolveEmptyInvocation(t *testing.T) {
	testlog.Start(t)
	if got := Resolve(nil); got != "idle" {
		t.Fatalf("expected default command idle, got %q", got)
	}
	if got := Resolve([]string{}); got != "idle" {
		t.Fatalf("expected default command idle, got %q", got)
	}
}

func TestResolveFirstToken(t *testing.T) {
	testlog.Start(t)
	if got := Resolve([]string{"premarket", "--extra"}); got != "premarket" {
		t.Fatalf("unexpected command: %q", got)
	}
}

func TestDispatchRunsExactlyOneHandler(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	ran := ""
	reg.Register("idle", func(ctx context.Context) error {
		ran = "idle"
		return nil
	})
	reg.Register("premarket", func(ctx context.Context) error {
		ran = "premarket"
		return nil
	})

	status, err := Dispatch(context.Background(), reg, "premarket")
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if status != ExitSuccess {
		t.Fatalf("unexpected status: %d", status)
	}
	if ran != "premarket" {
		t.Fatalf("wrong handler ran: %q", ran)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	called := false
	reg.Register("idle", func(ctx context.Context) error {
		called = true
		return nil
	})

	status, err := Dispatch(context.Background(), reg, "serve")
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand, got %v", err)
	}
	if status != ExitUnknownCommand {
		t.Fatalf("unexpected status: %d", status)
	}
	if called {
		t.Fatal("no handler should run for an unknown command")
	}
}

func TestDispatchIsCaseSensitive(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	reg.Register("idle", func(ctx context.Context) error { return nil })

	status, err := Dispatch(context.Background(), reg, "IDLE")
	if !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected ErrUnknownCommand for IDLE, got %v", err)
	}
	if status == ExitSuccess {
		t.Fatal("case-mismatched command must not succeed")
	}
}

func TestDispatchHandlerFailure(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	reg.Register("broken", func(ctx context.Context) error {
		return errors.New("boom")
	})

	status, err := Dispatch(context.Background(), reg, "broken")
	if err == nil {
		t.Fatal("expected handler error")
	}
	if status != ExitHandlerFailure {
		t.Fatalf("unexpected status: %d", status)
	}
}

func TestDispatchInvalidConfigStatus(t *testing.T) {
	testlog.Start(t)
	reg := NewRegistry()
	reg.Register("premarket", func(ctx context.Context) error {
		return fmt.Errorf("%w: POLYGON_API_KEY is not set", ErrInvalidConfig)
	})

	status, err := Dispatch(context.Background(), reg, "premarket")
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if status != ExitInvalidConfig {
		t.Fatalf("unexpected status: %d", status)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	testlog.Start(t)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	reg := NewRegistry()
	reg.Register("idle", func(ctx context.Context) error { return nil })
	reg.Register("idle", func(ctx context.Context) error { return nil })
}
