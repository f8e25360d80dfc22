package restic

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stacksave/stacksave/internal/logging"
	"github.com/stacksave/stacksave/internal/types"
)

type call struct {
	env  []string
	argv []string
}

func testEngine(out []byte, err error) (*Engine, *[]call, *int) {
	calls := &[]call{}
	sleeps := new(int)

	e := New(logging.New(types.LogLevelNone, false), "/srv/restic", "s3cret", false)
	e.sleep = func(time.Duration) { *sleeps++ }
	e.output = func(_ context.Context, env []string, argv []string) ([]byte, error) {
		*calls = append(*calls, call{env: env, argv: argv})
		return out, err
	}
	return e, calls, sleeps
}

func hasEnv(env []string, want string) bool {
	for _, e := range env {
		if e == want {
			return true
		}
	}
	return false
}

func TestBackupArguments(t *testing.T) {
	e, calls, _ := testEngine(nil, nil)

	if err := e.Backup(context.Background(), "web", "/srv/web"); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	if len(*calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(*calls))
	}
	got := (*calls)[0]
	want := []string{"restic", "backup", "--tag", "web", "/srv/web"}
	if strings.Join(got.argv, " ") != strings.Join(want, " ") {
		t.Errorf("argv = %v, want %v", got.argv, want)
	}
	if !hasEnv(got.env, "RESTIC_REPOSITORY=/srv/restic") {
		t.Errorf("env missing repository: %v", got.env)
	}
	if !hasEnv(got.env, "RESTIC_PASSWORD=s3cret") {
		t.Errorf("env missing password")
	}
}

func TestBackupFailure(t *testing.T) {
	e, _, _ := testEngine(nil, errors.New("repository locked"))

	if err := e.Backup(context.Background(), "web", "/srv/web"); err == nil {
		t.Error("expected error from failed backup")
	}
}

func TestSettleDelayBetweenInvocations(t *testing.T) {
	e, _, sleeps := testEngine(nil, nil)
	ctx := context.Background()

	_ = e.Backup(ctx, "a", "/a")
	if *sleeps != 0 {
		t.Errorf("first invocation slept %d times, want 0", *sleeps)
	}
	_ = e.Backup(ctx, "b", "/b")
	_ = e.Check(ctx)
	if *sleeps != 2 {
		t.Errorf("sleeps = %d, want one settle delay per subsequent invocation", *sleeps)
	}
}

func TestForgetPreviewArguments(t *testing.T) {
	e, calls, _ := testEngine(nil, nil)

	if err := e.ForgetPreview(context.Background(), 30, 12); err != nil {
		t.Fatalf("ForgetPreview: %v", err)
	}

	got := strings.Join((*calls)[0].argv, " ")
	want := "restic forget --dry-run --keep-within-weekly 30d --keep-within-monthly 12m"
	if got != want {
		t.Errorf("argv = %q, want %q", got, want)
	}
}

func TestDryRunSkipsEngineCalls(t *testing.T) {
	calls := 0
	e := New(logging.New(types.LogLevelNone, false), "/srv/restic", "s3cret", true)
	e.output = func(context.Context, []string, []string) ([]byte, error) {
		calls++
		return nil, nil
	}

	ctx := context.Background()
	if err := e.Backup(ctx, "web", "/srv/web"); err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if err := e.Check(ctx); err != nil {
		t.Fatalf("Check: %v", err)
	}
	if err := e.ForgetPreview(ctx, 30, 12); err != nil {
		t.Fatalf("ForgetPreview: %v", err)
	}
	if calls != 0 {
		t.Errorf("engine ran %d commands in dry-run mode, want 0", calls)
	}
}

func TestSnapshotsParsesJSON(t *testing.T) {
	payload := `[
		{"id":"abcdef1234","short_id":"abcdef","time":"2026-08-29T03:00:00Z",
		 "hostname":"host1","tags":["web"],"paths":["/srv/web"]},
		{"id":"fedcba4321","short_id":"fedcba","time":"2026-08-30T03:00:00Z",
		 "hostname":"host1","tags":["db"],"paths":["/srv/db/.backup-tmp"]}
	]`
	e, _, _ := testEngine([]byte(payload), nil)

	snaps, err := e.Snapshots(context.Background())
	if err != nil {
		t.Fatalf("Snapshots: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("len = %d, want 2", len(snaps))
	}
	if snaps[0].ShortID != "abcdef" || snaps[0].Tags[0] != "web" {
		t.Errorf("unexpected first snapshot: %+v", snaps[0])
	}
	if !snaps[1].Time.Equal(time.Date(2026, 8, 30, 3, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected time: %v", snaps[1].Time)
	}
}

func TestSnapshotsBadJSON(t *testing.T) {
	e, _, _ := testEngine([]byte("not json"), nil)
	if _, err := e.Snapshots(context.Background()); err == nil {
		t.Error("expected parse error")
	}
}
