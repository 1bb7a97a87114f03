package materialize

import "testing"

func TestClassifyState(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state string
		want  StateKind
	}{
		{"RUNNING", StateRunning},
		{"running", StateRunning},
		{"BACKFILL_RUNNING", StateRunning},
		{"batch_running", StateRunning},
		{"SUCCESS", StateSuccess},
		{"BATCH_SUCCESS", StateSuccess},
		{"ingest_success", StateSuccess},
		{"MANUALLY_CANCELLED", StateCancelled},
		{"BACKFILL_MANUALLY_CANCELLED", StateCancelled},
		{"ERROR", StateFailed},
		{"BATCH_ERROR", StateFailed},
		{"FAILED", StateFailed},
		{"DRAINED", StateFailed},
		{"", StateFailed},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyState(tt.state); got != tt.want {
				t.Errorf("ClassifyState(%q) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

func TestStatePredicates(t *testing.T) {
	t.Parallel()

	if !IsRunning("BACKFILL_RUNNING") {
		t.Error("IsRunning(BACKFILL_RUNNING) = false")
	}
	if IsRunning("SUCCESS") {
		t.Error("IsRunning(SUCCESS) = true")
	}
	if !IsSuccess("batch_success") {
		t.Error("IsSuccess(batch_success) = false")
	}
	if IsSuccess("MANUALLY_CANCELLED") {
		t.Error("IsSuccess(MANUALLY_CANCELLED) = true")
	}
	if !IsManuallyCancelled("Manually_Cancelled") {
		t.Error("IsManuallyCancelled(Manually_Cancelled) = false")
	}
	if IsManuallyCancelled("RUNNING") {
		t.Error("IsManuallyCancelled(RUNNING) = true")
	}
}

func TestStateKindString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind StateKind
		want string
	}{
		{StateRunning, "running"},
		{StateSuccess, "success"},
		{StateCancelled, "cancelled"},
		{StateFailed, "failed"},
		{StateKind(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("StateKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
