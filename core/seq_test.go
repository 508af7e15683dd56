package core

import (
	"errors"
	"reflect"
	"testing"
)

func TestDeferSeqRunsNothingBeforeFirstPull(t *testing.T) {
	t.Parallel()

	opened := false
	seq := DeferSeq(func() (*Seq[int], error) {
		opened = true
		return SeqOf(1, 2, 3), nil
	})
	if opened {
		t.Fatal("DeferSeq must not open before the first pull")
	}

	value, ok, err := seq.Next()
	if err != nil || !ok || value != 1 {
		t.Fatalf("Next() = %v, %v, %v", value, ok, err)
	}
	if !opened {
		t.Fatal("first pull should have opened the sequence")
	}
}

func TestSeqIsSinglePass(t *testing.T) {
	t.Parallel()

	seq := SeqOf("a", "b")
	collected, err := CollectSeq(seq)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(collected, []string{"a", "b"}) {
		t.Fatalf("collected %#v", collected)
	}

	if _, ok, _ := seq.Next(); ok {
		t.Fatal("a drained sequence must not yield again")
	}
}

func TestSeqCloseReleasesOnce(t *testing.T) {
	t.Parallel()

	released := 0
	seq := SeqOf(1, 2, 3).OnClose(func() { released++ })

	if _, ok, _ := seq.Next(); !ok {
		t.Fatal("expected an element")
	}
	seq.Close()
	seq.Close()
	if released != 1 {
		t.Fatalf("release ran %d times, want 1", released)
	}
	if _, ok, _ := seq.Next(); ok {
		t.Fatal("a closed sequence must not yield")
	}
}

func TestSeqReleasesOnExhaustion(t *testing.T) {
	t.Parallel()

	released := false
	seq := SeqOf(1).OnClose(func() { released = true })
	if _, err := CollectSeq(seq); err != nil {
		t.Fatal(err)
	}
	if !released {
		t.Fatal("draining a sequence should release it")
	}
}

func TestMapSeqPropagatesErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	seq := MapSeq(SeqOf(1, 2, 3), func(v int) (int, error) {
		if v == 2 {
			return 0, boom
		}
		return v * 10, nil
	})

	value, ok, err := seq.Next()
	if err != nil || !ok || value != 10 {
		t.Fatalf("first Next() = %v, %v, %v", value, ok, err)
	}
	if _, _, err := seq.Next(); !errors.Is(err, boom) {
		t.Fatalf("second Next() error = %v, want boom", err)
	}
	if _, ok, _ := seq.Next(); ok {
		t.Fatal("a failed sequence must not yield further elements")
	}
}

func TestDeferSeqOpenError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	seq := DeferSeq(func() (*Seq[int], error) { return nil, boom })
	if _, _, err := seq.Next(); !errors.Is(err, boom) {
		t.Fatalf("Next() error = %v, want boom", err)
	}
}

func TestFoldSeq(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		name     string
		elements []int64
		want     int64
	}{
		{name: "single total", elements: []int64{7}, want: 7},
		{name: "per element ones", elements: []int64{1, 1, 1}, want: 3},
		{name: "explicit zero", elements: []int64{0}, want: 0},
		{name: "empty", elements: nil, want: 0},
	}
	for _, tc := range tcs {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := FoldSeq(SeqOf(tc.elements...), int64(0), func(total, element int64) int64 {
				return total + element
			})
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Fatalf("sum = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestEmptySeq(t *testing.T) {
	t.Parallel()

	collected, err := CollectSeq(EmptySeq[string]())
	if err != nil {
		t.Fatal(err)
	}
	if len(collected) != 0 {
		t.Fatalf("collected %#v, want empty", collected)
	}
}
