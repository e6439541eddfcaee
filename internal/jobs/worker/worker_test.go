package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	jobrepo "github.com/xwerkax/BloomlyApp/internal/data/repos/jobs"
	"github.com/xwerkax/BloomlyApp/internal/data/repos/testutil"
	types "github.com/xwerkax/BloomlyApp/internal/domain"
	"github.com/xwerkax/BloomlyApp/internal/jobs/runtime"
	"github.com/xwerkax/BloomlyApp/internal/platform/ctxutil"
	"github.com/xwerkax/BloomlyApp/internal/platform/dbctx"
)

type funcHandler struct {
	typ string
	fn  func(jc *runtime.Context) error
}

func (h funcHandler) Type() string                  { return h.typ }
func (h funcHandler) Run(jc *runtime.Context) error { return h.fn(jc) }

type recorder struct {
	mu     sync.Mutex
	done   []uuid.UUID
	failed []uuid.UUID
}

func (r *recorder) JobCreated(job *types.JobRun)                                 {}
func (r *recorder) JobProgress(job *types.JobRun, stage string, p int, m string) {}
func (r *recorder) JobFailed(job *types.JobRun, stage string, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, job.ID)
}
func (r *recorder) JobDone(job *types.JobRun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = append(r.done, job.ID)
}

func TestRunOnceOutcomes(t *testing.T) {
	ctx := context.Background()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := jobrepo.NewJobRunRepo(db, log)

	var sawJobID string
	reg := runtime.NewRegistry()
	for _, h := range []runtime.Handler{
		funcHandler{"ok", func(jc *runtime.Context) error {
			if td := ctxutil.GetTraceData(jc.Ctx); td != nil {
				sawJobID = td.JobID
			}
			jc.Progress("working", 50, "halfway")
			jc.Succeed("done", map[string]int{"trained": 1})
			return nil
		}},
		funcHandler{"boom", func(jc *runtime.Context) error { return errors.New("store unavailable") }},
		funcHandler{"explode", func(jc *runtime.Context) error { panic("bad state") }},
	} {
		if err := reg.Register(h); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}
	if err := reg.Register(funcHandler{typ: "ok"}); !errors.Is(err, runtime.ErrDuplicateHandler) {
		t.Fatalf("duplicate registration: %v", err)
	}

	base := time.Now().UTC().Add(-time.Hour)
	var jobs []*types.JobRun
	for i, jt := range []string{"ok", "boom", "explode", "ghost"} {
		jobs = append(jobs, &types.JobRun{
			JobType:   jt,
			Status:    types.JobStatusQueued,
			Stage:     "queued",
			Payload:   datatypes.JSON([]byte(`{}`)),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	if _, err := repo.Create(dbctx.Of(ctx), jobs); err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec := &recorder{}
	w := NewWorker(db, log, repo, reg, rec, nil, Config{})
	for i := range jobs {
		if !w.RunOnce(ctx, 1) {
			t.Fatalf("run %d: nothing claimed", i)
		}
	}
	// Failed runs wait out the retry delay before they are claimable again.
	if w.RunOnce(ctx, 1) {
		t.Fatalf("expected an empty queue")
	}

	want := map[string]string{
		"ok":      types.JobStatusSucceeded,
		"boom":    types.JobStatusFailed,
		"explode": types.JobStatusFailed,
		"ghost":   types.JobStatusFailed,
	}
	for _, j := range jobs {
		got, err := repo.GetByID(dbctx.Of(ctx), j.ID)
		if err != nil || got == nil {
			t.Fatalf("GetByID %s: %v", j.JobType, err)
		}
		if got.Status != want[j.JobType] {
			t.Fatalf("%s: status=%s error=%q", j.JobType, got.Status, got.Error)
		}
		if got.Attempts != 1 {
			t.Fatalf("%s: attempts=%d", j.JobType, got.Attempts)
		}
	}
	if sawJobID != jobs[0].ID.String() {
		t.Fatalf("job id on context: %q", sawJobID)
	}
	if len(rec.done) != 1 || len(rec.failed) != 3 {
		t.Fatalf("notifications done=%d failed=%d", len(rec.done), len(rec.failed))
	}

	boom, _ := repo.GetByID(dbctx.Of(ctx), jobs[1].ID)
	if boom.Error != "store unavailable" || boom.Stage != "run" {
		t.Fatalf("boom: stage=%q error=%q", boom.Stage, boom.Error)
	}
}

func TestStartRunsQueuedJobs(t *testing.T) {
	db := testutil.DB(t)
	log := testutil.Logger(t)
	repo := jobrepo.NewJobRunRepo(db, log)
	reg := runtime.NewRegistry()
	done := make(chan struct{})
	_ = reg.Register(funcHandler{"ok", func(jc *runtime.Context) error {
		jc.Succeed("done", nil)
		close(done)
		return nil
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w := NewWorker(db, log, repo, reg, nil, nil, Config{Concurrency: 1, PollInterval: 10 * time.Millisecond})
	w.Start(ctx)

	if _, err := repo.Create(dbctx.Of(ctx), []*types.JobRun{{
		JobType: "ok",
		Status:  types.JobStatusQueued,
		Payload: datatypes.JSON([]byte(`{}`)),
	}}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("worker never ran the job")
	}
}
