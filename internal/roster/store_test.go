package roster

import (
	"context"
	"path/filepath"
	"testing"

	"botkit/internal/bot"
	"botkit/internal/domain"
)

type joinRecorder struct {
	name  string
	joins []string
}

func (j *joinRecorder) Name() string                   { return j.name }
func (j *joinRecorder) Init(ctx context.Context) error { return nil }
func (j *joinRecorder) RequestJoin(group string)       { j.joins = append(j.joins, group) }
func (j *joinRecorder) MarkReady()                     {}

func newTestBot(t *testing.T, dbPath string, groups []string) (*bot.Bot, *joinRecorder) {
	t.Helper()
	b := bot.New(nil)
	b.Define("fakechat", func(b *bot.Bot, name string, params bot.Params) (domain.Service, error) {
		return &joinRecorder{name: name}, nil
	})
	b.Define("roster", New)
	if err := b.Register("irc", ".fakechat", nil); err != nil {
		t.Fatal(err)
	}
	params := bot.Params{"chat": "irc", "db_path": dbPath}
	if groups != nil {
		params["groups"] = groups
	}
	if err := b.Register("roster", ".roster", params); err != nil {
		t.Fatal(err)
	}
	if err := b.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	svc, _ := b.Lookup("irc")
	return b, svc.(*joinRecorder)
}

func TestStaticGroupsRequestedOnInit(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "roster.db")
	b, rec := newTestBot(t, dbPath, []string{"#ops", "#dev"})
	defer b.ShutdownAll()

	if got := len(rec.joins); got != 2 {
		t.Fatalf("joins = %v, want 2 groups", rec.joins)
	}
	if rec.joins[0] != "#ops" || rec.joins[1] != "#dev" {
		t.Fatalf("joins = %v, want [#ops #dev]", rec.joins)
	}
}

func TestGroupsSurviveRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "roster.db")
	ctx := context.Background()

	b, _ := newTestBot(t, dbPath, nil)
	svc, _ := b.Lookup("roster")
	store := svc.(*Store)
	if err := store.Add(ctx, "#ops"); err != nil {
		t.Fatal(err)
	}
	if err := store.Add(ctx, "#dev"); err != nil {
		t.Fatal(err)
	}
	// Adding twice must not duplicate.
	if err := store.Add(ctx, "#ops"); err != nil {
		t.Fatal(err)
	}
	b.ShutdownAll()

	b2, rec := newTestBot(t, dbPath, nil)
	defer b2.ShutdownAll()
	if len(rec.joins) != 2 || rec.joins[0] != "#ops" || rec.joins[1] != "#dev" {
		t.Fatalf("joins after restart = %v, want [#ops #dev]", rec.joins)
	}
}

func TestRemoveForgetsGroup(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "roster.db")
	ctx := context.Background()

	b, _ := newTestBot(t, dbPath, []string{"#ops", "#dev"})
	svc, _ := b.Lookup("roster")
	store := svc.(*Store)
	if err := store.Remove(ctx, "#ops"); err != nil {
		t.Fatal(err)
	}
	groups, err := store.Groups(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != 1 || groups[0] != "#dev" {
		t.Fatalf("groups = %v, want [#dev]", groups)
	}
	b.ShutdownAll()
}
