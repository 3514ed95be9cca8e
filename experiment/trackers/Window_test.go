package trackers

import "testing"

func TestWindowEvictsOldest(t *testing.T) {
	w := NewWindow(3)
	for _, r := range []float64{10, 20, 30, 40} {
		w.Add(r)
		if w.Len() > w.Size() {
			t.Fatalf("add: window length %v exceeds size %v", w.Len(),
				w.Size())
		}
	}

	want := []float64{20, 30, 40}
	have := w.Values()
	if len(have) != len(want) {
		t.Fatalf("values: want(%v) have(%v)", want, have)
	}
	for i := range want {
		if have[i] != want[i] {
			t.Errorf("values: want(%v) have(%v)", want, have)
			break
		}
	}

	if avg := w.Average(); avg != 30 {
		t.Errorf("average: want(30) have(%v)", avg)
	}
}

func TestWindowPartial(t *testing.T) {
	w := NewWindow(5)
	if avg := w.Average(); avg != 0 {
		t.Errorf("average: empty window want(0) have(%v)", avg)
	}

	w.Add(1)
	w.Add(2)
	if w.Len() != 2 {
		t.Errorf("len: want(2) have(%v)", w.Len())
	}
	if avg := w.Average(); avg != 1.5 {
		t.Errorf("average: want(1.5) have(%v)", avg)
	}
}
