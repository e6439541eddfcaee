package ctxutil

import (
	"context"
	"testing"
)

func TestLogFields(t *testing.T) {
	if got := LogFields(context.Background()); len(got) != 0 {
		t.Fatalf("empty ctx: got %v", got)
	}
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t1", JobID: "j1"})
	got := LogFields(ctx)
	want := []interface{}{"trace_id", "t1", "job_id", "j1"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("field %d: want %v got %v", i, want[i], got[i])
		}
	}
}
