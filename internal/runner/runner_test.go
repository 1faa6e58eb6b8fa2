package runner_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"vigil/internal/logging"
	"vigil/internal/runner"
	"vigil/internal/state"
	"vigil/internal/tasks"
)

type stubFetcher struct {
	fetchFunc func(ctx context.Context, address string) ([]byte, error)
	calls     int
}

func (s *stubFetcher) Fetch(ctx context.Context, address string) ([]byte, error) {
	s.calls++
	if s.fetchFunc != nil {
		return s.fetchFunc(ctx, address)
	}
	return []byte("raw"), nil
}

type stubTransformer struct {
	transformFunc func(ctx context.Context, raw []byte, spec string) (string, error)
}

func (s *stubTransformer) Transform(ctx context.Context, raw []byte, spec string) (string, error) {
	if s.transformFunc != nil {
		return s.transformFunc(ctx, raw, spec)
	}
	return string(raw), nil
}

type stubInvoker struct {
	mu         sync.Mutex
	invokeFunc func(ctx context.Context, spec, taskID, value string) error
	values     []string
}

func (s *stubInvoker) Invoke(ctx context.Context, spec, taskID, value string) error {
	s.mu.Lock()
	s.values = append(s.values, value)
	s.mu.Unlock()
	if s.invokeFunc != nil {
		return s.invokeFunc(ctx, spec, taskID, value)
	}
	return nil
}

func (s *stubInvoker) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

type fakeStore struct {
	values map[string]string
	setErr error
	sets   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) Get(taskID string) (string, bool) {
	value, ok := f.values[taskID]
	return value, ok
}

func (f *fakeStore) Set(taskID, value string) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.values[taskID] = value
	return nil
}

func testTask() tasks.Descriptor {
	return tasks.Descriptor{
		ID:        "https://example.com/feed",
		URL:       "https://example.com/feed",
		Transform: "cat",
		Action:    "true",
	}
}

func fixedTransform(value string) *stubTransformer {
	return &stubTransformer{transformFunc: func(context.Context, []byte, string) (string, error) {
		return value, nil
	}}
}

func TestFirstObservationIsChange(t *testing.T) {
	store := newFakeStore()
	invoker := &stubInvoker{}
	r := runner.New(store, &stubFetcher{}, fixedTransform("v1"), invoker, logging.NewNop())

	result := r.Run(context.Background(), testTask())

	if result.Outcome != runner.OutcomeChanged {
		t.Fatalf("expected changed, got %s", result.Outcome)
	}
	if !result.First {
		t.Fatal("expected first-observation flag")
	}
	if result.Value != "v1" {
		t.Fatalf("unexpected value %q", result.Value)
	}
	if got, _ := store.Get(testTask().ID); got != "v1" {
		t.Fatalf("expected persisted v1, got %q", got)
	}
	if invoker.callCount() != 1 {
		t.Fatalf("expected exactly one action call, got %d", invoker.callCount())
	}
}

func TestUnchangedValueDoesNotPersistOrAct(t *testing.T) {
	store := newFakeStore()
	store.values[testTask().ID] = "v1"
	invoker := &stubInvoker{}
	r := runner.New(store, &stubFetcher{}, fixedTransform("v1"), invoker, logging.NewNop())

	result := r.Run(context.Background(), testTask())

	if result.Outcome != runner.OutcomeUnchanged {
		t.Fatalf("expected unchanged, got %s", result.Outcome)
	}
	if result.First {
		t.Fatal("unexpected first-observation flag")
	}
	if store.sets != 0 {
		t.Fatalf("store must not be written on unchanged, got %d writes", store.sets)
	}
	if invoker.callCount() != 0 {
		t.Fatalf("action must not fire on unchanged, got %d calls", invoker.callCount())
	}
}

func TestRepeatedTicksAreIdempotent(t *testing.T) {
	store := newFakeStore()
	invoker := &stubInvoker{}
	r := runner.New(store, &stubFetcher{}, fixedTransform("same"), invoker, logging.NewNop())

	first := r.Run(context.Background(), testTask())
	if first.Outcome != runner.OutcomeChanged {
		t.Fatalf("expected first run changed, got %s", first.Outcome)
	}
	for i := 0; i < 3; i++ {
		result := r.Run(context.Background(), testTask())
		if result.Outcome != runner.OutcomeUnchanged {
			t.Fatalf("run %d: expected unchanged, got %s", i, result.Outcome)
		}
	}
	if invoker.callCount() != 1 {
		t.Fatalf("expected one action call total, got %d", invoker.callCount())
	}
	if store.sets != 1 {
		t.Fatalf("expected one store write total, got %d", store.sets)
	}
}

func TestChangedValuePersistsBeforeAction(t *testing.T) {
	store, err := state.Open(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("open state: %v", err)
	}
	if err := store.Set(testTask().ID, "v1"); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	var observed string
	invoker := &stubInvoker{invokeFunc: func(_ context.Context, _, taskID, _ string) error {
		observed, _ = store.Get(taskID)
		return nil
	}}
	r := runner.New(store, &stubFetcher{}, fixedTransform("v2"), invoker, logging.NewNop())

	result := r.Run(context.Background(), testTask())

	if result.Outcome != runner.OutcomeChanged {
		t.Fatalf("expected changed, got %s", result.Outcome)
	}
	if result.Previous != "v1" {
		t.Fatalf("expected previous v1, got %q", result.Previous)
	}
	if observed != "v2" {
		t.Fatalf("store must already hold the new value when the action fires, saw %q", observed)
	}
	if invoker.callCount() != 1 {
		t.Fatalf("expected exactly one action call with v2, got %d", invoker.callCount())
	}
	if invoker.values[0] != "v2" {
		t.Fatalf("action received %q, want v2", invoker.values[0])
	}
}

func TestFetchFailureLeavesStateAlone(t *testing.T) {
	store := newFakeStore()
	store.values[testTask().ID] = "v1"
	invoker := &stubInvoker{}
	fetcher := &stubFetcher{fetchFunc: func(context.Context, string) ([]byte, error) {
		return nil, errors.New("connection refused")
	}}
	r := runner.New(store, fetcher, fixedTransform("ignored"), invoker, logging.NewNop())

	result := r.Run(context.Background(), testTask())

	if result.Outcome != runner.OutcomeFetchFailed {
		t.Fatalf("expected fetch_failed, got %s", result.Outcome)
	}
	if !errors.Is(result.Err, runner.ErrTransport) {
		t.Fatalf("expected transport marker, got %v", result.Err)
	}
	if store.sets != 0 || invoker.callCount() != 0 {
		t.Fatal("fetch failure must not touch store or action")
	}
}

func TestTransformFailureLeavesStateAlone(t *testing.T) {
	store := newFakeStore()
	invoker := &stubInvoker{}
	transformer := &stubTransformer{transformFunc: func(context.Context, []byte, string) (string, error) {
		return "", errors.New("exit status 1")
	}}
	r := runner.New(store, &stubFetcher{}, transformer, invoker, logging.NewNop())

	result := r.Run(context.Background(), testTask())

	if result.Outcome != runner.OutcomeTransformFailed {
		t.Fatalf("expected transform_failed, got %s", result.Outcome)
	}
	if !errors.Is(result.Err, runner.ErrTransform) {
		t.Fatalf("expected transform marker, got %v", result.Err)
	}
	if store.sets != 0 || invoker.callCount() != 0 {
		t.Fatal("transform failure must not touch store or action")
	}
}

func TestPersistFailureSuppressesAction(t *testing.T) {
	store := newFakeStore()
	store.setErr = errors.New("disk full")
	invoker := &stubInvoker{}
	r := runner.New(store, &stubFetcher{}, fixedTransform("v1"), invoker, logging.NewNop())

	result := r.Run(context.Background(), testTask())

	if result.Outcome != runner.OutcomePersistFailed {
		t.Fatalf("expected persist_failed, got %s", result.Outcome)
	}
	if !errors.Is(result.Err, runner.ErrPersist) {
		t.Fatalf("expected persist marker, got %v", result.Err)
	}
	if invoker.callCount() != 0 {
		t.Fatal("action must not fire when persistence failed")
	}
}

func TestActionFailureKeepsChangedOutcome(t *testing.T) {
	store := newFakeStore()
	invoker := &stubInvoker{invokeFunc: func(context.Context, string, string, string) error {
		return errors.New("exit status 2")
	}}
	r := runner.New(store, &stubFetcher{}, fixedTransform("v1"), invoker, logging.NewNop())

	result := r.Run(context.Background(), testTask())

	if result.Outcome != runner.OutcomeChanged {
		t.Fatalf("expected changed despite action failure, got %s", result.Outcome)
	}
	if result.ActionErr == nil {
		t.Fatal("expected action error to be surfaced")
	}
	if got, _ := store.Get(testTask().ID); got != "v1" {
		t.Fatalf("expected value persisted, got %q", got)
	}
}

func TestProbeNeverPersistsOrActs(t *testing.T) {
	store := newFakeStore()
	store.values[testTask().ID] = "v1"
	invoker := &stubInvoker{}
	r := runner.New(store, &stubFetcher{}, fixedTransform("v2"), invoker, logging.NewNop())

	result := r.Probe(context.Background(), testTask())

	if result.Outcome != runner.OutcomeChanged {
		t.Fatalf("expected changed, got %s", result.Outcome)
	}
	if store.sets != 0 {
		t.Fatal("probe must not write the store")
	}
	if invoker.callCount() != 0 {
		t.Fatal("probe must not fire actions")
	}
}

func TestOutcomeFailedClassification(t *testing.T) {
	failed := []runner.Outcome{runner.OutcomeFetchFailed, runner.OutcomeTransformFailed, runner.OutcomePersistFailed}
	for _, outcome := range failed {
		if !outcome.Failed() {
			t.Fatalf("expected %s to classify as failed", outcome)
		}
	}
	for _, outcome := range []runner.Outcome{runner.OutcomeChanged, runner.OutcomeUnchanged} {
		if outcome.Failed() {
			t.Fatalf("expected %s to classify as success", outcome)
		}
	}
}
