package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cadencelab/cadence/internal/adapters/mq/queue"
	"github.com/cadencelab/cadence/internal/adapters/mq/worker"
	"github.com/cadencelab/cadence/internal/domain/model"
	"github.com/cadencelab/cadence/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeAnalyzer struct {
	mu       sync.Mutex
	analyzed []string
	errs     map[string]error
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{errs: make(map[string]error)}
}

func (f *fakeAnalyzer) Analyze(_ context.Context, sessionID string) (model.AnalysisRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[sessionID]; ok {
		return model.AnalysisRecord{}, err
	}
	f.analyzed = append(f.analyzed, sessionID)
	return model.AnalysisRecord{SessionID: sessionID}, nil
}

func (f *fakeAnalyzer) seen() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.analyzed))
	copy(out, f.analyzed)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestWorker(t *testing.T) {
	Convey("Given a worker over an in-memory queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(16), queue.WithBufferSize(16))
		analyzer := newFakeAnalyzer()

		Convey("It analyzes jobs as they arrive", func() {
			w := worker.NewInMemoryWorker(q, analyzer, worker.WithName("w-0"))
			go w.Run(ctx)

			So(q.Enqueue(ctx, queue.Job{SessionID: "s-1"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{SessionID: "s-2"}), ShouldBeTrue)

			waitFor(t, func() bool { return len(analyzer.seen()) == 2 })
			So(analyzer.seen(), ShouldResemble, []string{"s-1", "s-2"})

			shutdownCtx, shutdownCancel := context.WithTimeout(ctx, time.Second)
			defer shutdownCancel()
			So(w.Shutdown(shutdownCtx), ShouldBeNil)
		})

		Convey("Duplicate and stale jobs are dropped quietly", func() {
			analyzer.errs["racing"] = session.ErrAnalysisInFlight
			analyzer.errs["stale"] = session.ErrAlreadyAnalyzed

			w := worker.NewInMemoryWorker(q, analyzer)
			go w.Run(ctx)

			So(q.Enqueue(ctx, queue.Job{SessionID: "racing"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{SessionID: "stale"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{SessionID: "fresh"}), ShouldBeTrue)

			waitFor(t, func() bool { return len(analyzer.seen()) == 1 })
			So(analyzer.seen(), ShouldResemble, []string{"fresh"})
		})

		Convey("A failing job does not stop the worker", func() {
			analyzer.errs["broken"] = errors.New("classifier exploded")

			w := worker.NewInMemoryWorker(q, analyzer)
			go w.Run(ctx)

			So(q.Enqueue(ctx, queue.Job{SessionID: "broken"}), ShouldBeTrue)
			So(q.Enqueue(ctx, queue.Job{SessionID: "next"}), ShouldBeTrue)

			waitFor(t, func() bool { return len(analyzer.seen()) == 1 })
			So(analyzer.seen(), ShouldResemble, []string{"next"})
		})
	})
}

func TestPool(t *testing.T) {
	Convey("Given a pool of workers", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(64), queue.WithBufferSize(64))
		analyzer := newFakeAnalyzer()
		pool := worker.NewPool(4, q, analyzer)

		So(pool.Size(), ShouldEqual, 4)
		pool.Start(ctx)

		Convey("Every queued job is processed exactly once", func() {
			want := make(map[string]bool)
			for i := 0; i < 20; i++ {
				id := "s-" + string(rune('a'+i))
				want[id] = true
				So(q.Enqueue(ctx, queue.Job{SessionID: id}), ShouldBeTrue)
			}

			waitFor(t, func() bool { return len(analyzer.seen()) == len(want) })

			got := make(map[string]int)
			for _, id := range analyzer.seen() {
				got[id]++
			}
			for id := range want {
				So(got[id], ShouldEqual, 1)
			}
		})

		Convey("Shutdown drains the queue and stops all workers", func() {
			So(q.Enqueue(ctx, queue.Job{SessionID: "last"}), ShouldBeTrue)
			So(pool.Shutdown(ctx), ShouldBeNil)
			So(q.IsClosed(), ShouldBeTrue)
			waitFor(t, func() bool { return len(analyzer.seen()) >= 1 })
		})
	})
}
