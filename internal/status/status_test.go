package status

import "testing"

func TestSetJobStatusNotifiesCallbacks(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	if _, ok := LastJob(); ok {
		t.Fatalf("no job expected after Reset")
	}

	var got []JobStatus
	RegisterJobStatusCallback(func(s JobStatus) { got = append(got, s) })

	SetJobStatus(JobStatus{ID: "a", Status: "queued"})
	SetJobStatus(JobStatus{ID: "a", Status: "done"})

	if len(got) != 2 || got[1].Status != "done" {
		t.Fatalf("callbacks: got=%+v", got)
	}
	if got[0].UpdatedAt.IsZero() {
		t.Fatalf("UpdatedAt should be filled")
	}
	last, ok := LastJob()
	if !ok || last.Status != "done" {
		t.Fatalf("LastJob: got=%+v ok=%v", last, ok)
	}
}

func TestPrinterReachableOnlyNotifiesOnChange(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	calls := 0
	RegisterPrinterStatusChangeCallback(func(bool) { calls++ })

	SetPrinterReachable(true)
	SetPrinterReachable(true)
	SetPrinterReachable(false)

	if calls != 2 {
		t.Fatalf("calls: got=%d want=2", calls)
	}
	if IsPrinterReachable() {
		t.Fatalf("printer should be unreachable")
	}
}
