package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"botkit/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// stubService records lifecycle calls into a shared trace.
type stubService struct {
	name        string
	trace       *[]string
	initErr     error
	shutdownErr error
}

func (s *stubService) Name() string { return s.name }

func (s *stubService) Init(context.Context) error {
	*s.trace = append(*s.trace, "init:"+s.name)
	return s.initErr
}

func (s *stubService) Shutdown() error {
	*s.trace = append(*s.trace, "shutdown:"+s.name)
	return s.shutdownErr
}

func stubCtor(trace *[]string) Constructor {
	return func(_ *Bot, name string, _ Params) (domain.Service, error) {
		return &stubService{name: name, trace: trace}, nil
	}
}

func TestRegister_DuplicateName(t *testing.T) {
	b := New(testLogger())
	if err := b.Register("a", "stub", nil); err != nil {
		t.Fatal(err)
	}
	err := b.Register("a", "stub", nil)
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestBuildAll_UnknownRefFailsResolution(t *testing.T) {
	b := New(testLogger())
	if err := b.Register("a", "no-such-service", nil); err != nil {
		t.Fatal(err)
	}
	err := b.BuildAll()
	if !errors.Is(err, ErrServiceResolution) {
		t.Fatalf("expected ErrServiceResolution, got %v", err)
	}
}

func TestBuildAll_ThreeWayResolution(t *testing.T) {
	var trace []string
	Builtins.Define("bot-test-builtin", stubCtor(&trace))
	Qualified.Define("botkit/internal/bot.testService", stubCtor(&trace))

	b := New(testLogger())
	b.Define("local", stubCtor(&trace))

	if err := b.Register("one", "bot-test-builtin", nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Register("two", "=botkit/internal/bot.testService", nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Register("three", ".local", nil); err != nil {
		t.Fatal(err)
	}

	if err := b.BuildAll(); err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, name := range []string{"one", "two", "three"} {
		if _, ok := b.Lookup(name); !ok {
			t.Fatalf("service %q missing after build", name)
		}
	}
}

func TestBuildAll_ConstructionFailureLeavesNoPartialBot(t *testing.T) {
	var trace []string
	b := New(testLogger())
	b.Define("good", stubCtor(&trace))
	b.Define("bad", func(_ *Bot, name string, _ Params) (domain.Service, error) {
		return nil, fmt.Errorf("boom")
	})

	if err := b.Register("a", ".good", nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Register("b", ".bad", nil); err != nil {
		t.Fatal(err)
	}

	err := b.BuildAll()
	if !errors.Is(err, ErrServiceConstruction) {
		t.Fatalf("expected ErrServiceConstruction, got %v", err)
	}
	if _, ok := b.Lookup("a"); ok {
		t.Fatal("no service may exist after a failed build")
	}
	for _, ev := range trace {
		if ev == "init:a" {
			t.Fatal("init must never run after a failed build")
		}
	}
}

func TestRun_InitializesInInsertionOrder(t *testing.T) {
	var trace []string
	b := New(testLogger())
	b.Define("stub", stubCtor(&trace))

	for _, name := range []string{"first", "second", "third"} {
		if err := b.Register(name, ".stub", nil); err != nil {
			t.Fatal(err)
		}
	}

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := []string{"init:first", "init:second", "init:third"}
	if len(trace) != len(want) {
		t.Fatalf("expected %v, got %v", want, trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, trace)
		}
	}
}

func TestRun_FailFastOnInitError(t *testing.T) {
	var trace []string
	b := New(testLogger())
	b.Define("stub", stubCtor(&trace))
	b.Define("failing", func(_ *Bot, name string, _ Params) (domain.Service, error) {
		return &stubService{name: name, trace: &trace, initErr: fmt.Errorf("connect refused")}, nil
	})

	if err := b.Register("a", ".stub", nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Register("b", ".failing", nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Register("c", ".stub", nil); err != nil {
		t.Fatal(err)
	}

	if err := b.Run(context.Background()); err == nil {
		t.Fatal("expected init error to surface from Run")
	}
	for _, ev := range trace {
		if ev == "init:c" {
			t.Fatal("services after the failing one must not initialize")
		}
	}
}

func TestShutdownAll_ReverseOrderAndIsolation(t *testing.T) {
	var trace []string
	b := New(testLogger())
	b.Define("stub", stubCtor(&trace))
	b.Define("angry", func(_ *Bot, name string, _ Params) (domain.Service, error) {
		return &stubService{name: name, trace: &trace, shutdownErr: fmt.Errorf("refusing")}, nil
	})

	if err := b.Register("a", ".stub", nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Register("b", ".angry", nil); err != nil {
		t.Fatal(err)
	}
	if err := b.Register("c", ".stub", nil); err != nil {
		t.Fatal(err)
	}

	if err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	trace = trace[:0]

	b.ShutdownAll()

	want := []string{"shutdown:c", "shutdown:b", "shutdown:a"}
	if len(trace) != len(want) {
		t.Fatalf("expected %v, got %v", want, trace)
	}
	for i := range want {
		if trace[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, trace)
		}
	}
}

func TestParams_Accessors(t *testing.T) {
	p := Params{
		"token":  "abc",
		"burst":  3,
		"rate":   2.5,
		"flag":   true,
		"groups": []any{"a", "b", 3},
		"wait":   "250ms",
	}

	if p.String("token") != "abc" {
		t.Fatal("String")
	}
	if p.StringOr("missing", "def") != "def" {
		t.Fatal("StringOr")
	}
	if p.Int("burst") != 3 {
		t.Fatal("Int")
	}
	if p.IntOr("missing", 7) != 7 {
		t.Fatal("IntOr")
	}
	if p.Float("rate") != 2.5 {
		t.Fatal("Float")
	}
	if !p.Bool("flag") {
		t.Fatal("Bool")
	}
	groups := p.StringSlice("groups")
	if len(groups) != 2 || groups[0] != "a" || groups[1] != "b" {
		t.Fatalf("StringSlice: %v", groups)
	}
	if p.DurationOr("wait", 0) != 250*time.Millisecond {
		t.Fatalf("DurationOr: %v", p.DurationOr("wait", 0))
	}
}
