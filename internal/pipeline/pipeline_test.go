package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/docredact/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, job *Job) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, job *Job) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, job)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func newTestJob() *Job {
	return NewJob("doc-1", nil, model.Batch{DocumentID: "doc-1"})
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	p := New(WithLogger(discardLogger()))
	if p.StepCount() != 0 {
		t.Errorf("expected 0 steps, got %d", p.StepCount())
	}

	p.AddStep(&mockStep{name: "a"})
	p.AddSteps(&mockStep{name: "b"}, &mockStep{name: "c"})

	names := p.StepNames()
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Errorf("unexpected step names %v", names)
	}
}

// TestPipelineExecute tests step execution order and error handling.
func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("runs steps in order and records them", func(t *testing.T) {
		t.Parallel()

		var order []string
		record := func(name string) *mockStep {
			return &mockStep{name: name, doFunc: func(context.Context, *Job) error {
				order = append(order, name)
				return nil
			}}
		}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(record("first"), record("second"), record("third"))

		job := newTestJob()
		if err := p.Execute(context.Background(), job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(order) != 3 || order[0] != "first" || order[2] != "third" {
			t.Errorf("unexpected order %v", order)
		}
		if len(job.Result.Steps) != 3 {
			t.Errorf("expected 3 recorded steps, got %v", job.Result.Steps)
		}
		if !job.Result.Succeeded() {
			t.Error("expected the job to succeed")
		}
	})

	t.Run("stops at the first failing step", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("boom")
		failing := &mockStep{name: "failing", doFunc: func(_ context.Context, job *Job) error {
			job.Result.Output = []byte("partial")
			return boom
		}}
		after := &mockStep{name: "after"}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(&mockStep{name: "before"}, failing, after)

		job := newTestJob()
		err := p.Execute(context.Background(), job)
		if !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("expected later steps to be skipped")
		}
		if job.Result.Succeeded() || job.Result.Output != nil {
			t.Error("expected a failed result without output")
		}
		if len(job.Result.Steps) != 1 || job.Result.Steps[0] != "before" {
			t.Errorf("expected only the first step to be recorded, got %v", job.Result.Steps)
		}
	})

	t.Run("cancelled context stops an uncommitted job", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "never"}
		p := New(WithLogger(discardLogger()))
		p.AddStep(step)

		job := newTestJob()
		err := p.Execute(ctx, job)
		if !errors.Is(err, context.Canceled) || !errors.Is(err, model.ErrIOFailure) {
			t.Errorf("expected a cancelled I/O failure, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("expected the step not to run")
		}
		if job.Result.ErrorKind != model.KindIOFailure {
			t.Errorf("expected IOFailure kind, got %v", job.Result.ErrorKind)
		}
	})

	t.Run("committed job runs to completion after cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())

		commit := &mockStep{name: "commit", doFunc: func(_ context.Context, job *Job) error {
			job.Committed = true
			cancel()
			return nil
		}}
		finish := &mockStep{name: "finish"}

		p := New(WithLogger(discardLogger()))
		p.AddSteps(commit, finish)

		job := newTestJob()
		if err := p.Execute(ctx, job); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if finish.callCount != 1 {
			t.Error("expected the step after commit to run")
		}
	})
}
