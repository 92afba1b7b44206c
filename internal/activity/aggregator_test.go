package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/relabs-tech/headmotion/internal/motion"
)

func sampleWith(acc, rot motion.Vec3) motion.Sample {
	return motion.Sample{UserAcceleration: acc, RotationRate: rot}
}

func feed(t *testing.T, a *Aggregator, samples ...motion.Sample) []error {
	t.Helper()
	var errs []error
	for _, s := range samples {
		if err := a.Add(context.Background(), s); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func TestNewAggregatorValidation(t *testing.T) {
	if _, err := NewAggregator(0, NewMock("still")); !errors.Is(err, ErrInvalidWindowSize) {
		t.Errorf("size 0: err = %v", err)
	}
	if _, err := NewAggregator(-3, NewMock("still")); !errors.Is(err, ErrInvalidWindowSize) {
		t.Errorf("size -3: err = %v", err)
	}
	if _, err := NewAggregator(20, nil); !errors.Is(err, ErrNoClassifier) {
		t.Errorf("nil classifier: err = %v", err)
	}
}

func TestSingleWindow(t *testing.T) {
	mock := NewMock("nodding")
	a, err := NewAggregator(20, mock)
	if err != nil {
		t.Fatal(err)
	}

	s := sampleWith(motion.Vec3{X: 1}, motion.Vec3{})
	for i := 0; i < 20; i++ {
		if err := a.Add(context.Background(), s); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}

	if got := mock.CallCount(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
	if a.Position() != 0 {
		t.Errorf("position = %d, want 0", a.Position())
	}

	w := mock.LastCall().Window
	if w.Len() != 20 {
		t.Fatalf("window len = %d", w.Len())
	}
	for i := 0; i < 20; i++ {
		f := w.Features(i)
		if f != [NumChannels]float64{1, 0, 0, 0, 0, 0} {
			t.Errorf("step %d features = %v", i, f)
		}
	}
}

func TestPartialWindowDoesNotClassify(t *testing.T) {
	mock := NewMock("still")
	a, _ := NewAggregator(20, mock)

	for i := 0; i < 19; i++ {
		feed(t, a, motion.Sample{})
	}
	if mock.CallCount() != 0 {
		t.Errorf("calls = %d, want 0", mock.CallCount())
	}
	if a.Position() != 19 {
		t.Errorf("position = %d, want 19", a.Position())
	}
}

func TestPositionWrapsAfterFullWindow(t *testing.T) {
	mock := NewMock("still")
	a, _ := NewAggregator(20, mock)

	for i := 0; i < 21; i++ {
		feed(t, a, motion.Sample{})
	}
	if a.Position() != 1 {
		t.Errorf("position = %d, want 1", a.Position())
	}
	if mock.CallCount() != 1 {
		t.Errorf("calls = %d, want 1", mock.CallCount())
	}
}

func TestCallsPerMultipleOfWindow(t *testing.T) {
	for _, size := range []int{1, 3, 20} {
		for _, windows := range []int{0, 1, 4} {
			mock := NewMock("still")
			a, _ := NewAggregator(size, mock)

			n := size * windows
			for i := 0; i < n; i++ {
				v := float64(i)
				feed(t, a, sampleWith(motion.Vec3{X: v}, motion.Vec3{}))
			}

			calls := mock.Calls()
			if len(calls) != windows {
				t.Fatalf("size=%d windows=%d: calls = %d", size, windows, len(calls))
			}
			// Each window starts where the previous one ended: no overlap.
			for k, c := range calls {
				for i := 0; i < size; i++ {
					want := float64(k*size + i)
					if c.Window.AccX[i] != want {
						t.Errorf("size=%d window %d step %d: acc_x = %v, want %v",
							size, k, i, c.Window.AccX[i], want)
					}
				}
			}
			if a.Position() != 0 {
				t.Errorf("size=%d windows=%d: position = %d", size, windows, a.Position())
			}
		}
	}
}

func TestChannelOrder(t *testing.T) {
	mock := NewMock("still")
	a, _ := NewAggregator(2, mock)

	for w := 0; w < 3; w++ {
		feed(t, a,
			sampleWith(motion.Vec3{X: 1, Y: 2, Z: 3}, motion.Vec3{X: 4, Y: 5, Z: 6}),
			sampleWith(motion.Vec3{X: 1, Y: 2, Z: 3}, motion.Vec3{X: 4, Y: 5, Z: 6}),
		)
	}

	for k, c := range mock.Calls() {
		for ch := AccelX; ch <= RotZ; ch++ {
			want := float64(ch) + 1
			for i, v := range c.Window.Channel(ch) {
				if v != want {
					t.Errorf("window %d %s[%d] = %v, want %v", k, ch, i, v, want)
				}
			}
		}
	}
}

func TestStateThreading(t *testing.T) {
	mock := NewMock("still")
	a, _ := NewAggregator(3, mock)

	for i := 0; i < 3*4; i++ {
		feed(t, a, motion.Sample{})
	}

	calls := mock.Calls()
	if len(calls) != 4 {
		t.Fatalf("calls = %d", len(calls))
	}
	if calls[0].Prior != nil {
		t.Errorf("first prior = %v, want nil", calls[0].Prior)
	}
	for n := 1; n < len(calls); n++ {
		want := State{float64(n)}
		got := calls[n].Prior
		if len(got) != 1 || got[0] != want[0] {
			t.Errorf("call %d prior = %v, want %v", n+1, got, want)
		}
	}
	if s := a.State(); len(s) != 1 || s[0] != 4 {
		t.Errorf("final state = %v", s)
	}
}

func TestFailureKeepsState(t *testing.T) {
	boom := errors.New("model exploded")
	calls := 0
	mock := &Mock{}
	mock.ClassifyFunc = func(ctx context.Context, w *Window, prior State) (*Prediction, error) {
		calls++
		if calls == 2 {
			return nil, boom
		}
		return &Prediction{
			Label:         "still",
			Probabilities: map[string]float64{"still": 0.9},
			State:         State{float64(calls * 10)},
		}, nil
	}

	var published []Result
	a, _ := NewAggregator(2, mock, WithSink(SinkFunc(func(r Result) {
		published = append(published, r)
	})))

	var errs []error
	for i := 0; i < 6; i++ {
		errs = append(errs, feed(t, a, motion.Sample{})...)
	}

	if len(errs) != 1 {
		t.Fatalf("errors = %v, want exactly one", errs)
	}
	var ce *ClassifyError
	if !errors.As(errs[0], &ce) {
		t.Fatalf("error %T is not *ClassifyError", errs[0])
	}
	if ce.Sequence != 2 {
		t.Errorf("failed sequence = %d, want 2", ce.Sequence)
	}
	if !errors.Is(errs[0], boom) {
		t.Errorf("error does not wrap cause: %v", errs[0])
	}

	recorded := mock.Calls()
	if got := recorded[2].Prior; len(got) != 1 || got[0] != 10 {
		t.Errorf("prior after failure = %v, want [10]", got)
	}
	if len(published) != 2 {
		t.Errorf("published = %d results, want 2", len(published))
	}
	if st := a.Stats(); st.Windows != 3 || st.Failures != 1 || st.Published != 2 || st.Samples != 6 {
		t.Errorf("stats = %+v", st)
	}
}

func TestNilPredictionIsFailure(t *testing.T) {
	mock := &Mock{ClassifyFunc: func(ctx context.Context, w *Window, prior State) (*Prediction, error) {
		return nil, nil
	}}
	a, _ := NewAggregator(1, mock)
	err := a.Add(context.Background(), motion.Sample{})
	if !errors.Is(err, ErrNilPrediction) {
		t.Errorf("err = %v, want ErrNilPrediction", err)
	}
}

func TestMissingProbabilityUpdatesStateOnly(t *testing.T) {
	mock := &Mock{ClassifyFunc: func(ctx context.Context, w *Window, prior State) (*Prediction, error) {
		return &Prediction{
			Label:         "mystery",
			Probabilities: map[string]float64{"still": 1},
			State:         State{7},
		}, nil
	}}
	published := 0
	a, _ := NewAggregator(1, mock, WithSink(SinkFunc(func(Result) { published++ })))

	if err := a.Add(context.Background(), motion.Sample{}); err != nil {
		t.Fatal(err)
	}
	if published != 0 {
		t.Errorf("published = %d, want 0", published)
	}
	if s := a.State(); len(s) != 1 || s[0] != 7 {
		t.Errorf("state = %v, want [7]", s)
	}
}

func TestPublishedResult(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock := &Mock{ClassifyFunc: func(ctx context.Context, w *Window, prior State) (*Prediction, error) {
		return &Prediction{
			Label:         "shaking",
			Probabilities: map[string]float64{"shaking": 0.87, "still": 0.13},
		}, nil
	}}

	var got []Result
	a, _ := NewAggregator(2, mock,
		WithSession("session-1"),
		WithClock(func() time.Time { return at }),
		WithSink(SinkFunc(func(r Result) { got = append(got, r) })),
	)
	feed(t, a, motion.Sample{}, motion.Sample{}, motion.Sample{}, motion.Sample{})

	if len(got) != 2 {
		t.Fatalf("results = %d", len(got))
	}
	r := got[1]
	if r.Session != "session-1" || r.Sequence != 2 || r.Label != "shaking" || !r.Time.Equal(at) {
		t.Errorf("result = %+v", r)
	}
	if r.Confidence != 0.87 {
		t.Errorf("confidence = %v", r.Confidence)
	}
	if r.Percent() != "87%" {
		t.Errorf("percent = %q", r.Percent())
	}
}

func TestReset(t *testing.T) {
	mock := NewMock("still")
	a, _ := NewAggregator(3, mock)
	feed(t, a, motion.Sample{}, motion.Sample{}, motion.Sample{}, motion.Sample{})

	a.Reset()
	if a.Position() != 0 || a.State() != nil {
		t.Fatalf("after reset: position=%d state=%v", a.Position(), a.State())
	}
	feed(t, a, motion.Sample{}, motion.Sample{}, motion.Sample{})
	if prior := mock.LastCall().Prior; prior != nil {
		t.Errorf("prior after reset = %v, want nil", prior)
	}
}

func TestClassifierCannotCorruptState(t *testing.T) {
	calls := 0
	var returned State
	clf := ClassifierFunc(func(ctx context.Context, w *Window, prior State) (*Prediction, error) {
		calls++
		if calls == 1 {
			returned = State{1}
			return &Prediction{Label: "still", Probabilities: map[string]float64{"still": 1}, State: returned}, nil
		}
		prior[0] = 999
		return nil, errors.New("half-way failure")
	})

	a, _ := NewAggregator(1, clf)
	feed(t, a, motion.Sample{})

	// The classifier keeps writing to the slice it handed back.
	returned[0] = 42
	if s := a.State(); len(s) != 1 || s[0] != 1 {
		t.Fatalf("state after success = %v, want [1]", s)
	}

	if errs := feed(t, a, motion.Sample{}); len(errs) != 1 {
		t.Fatalf("errors = %v, want one failure", errs)
	}
	if s := a.State(); len(s) != 1 || s[0] != 1 {
		t.Errorf("state after failed call = %v, want [1]", s)
	}
}
