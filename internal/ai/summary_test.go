package ai

import "testing"

func TestParseVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		expect  Verdict
		wantErr bool
	}{
		{name: "suitable", input: "suitable", expect: VerdictSuitable},
		{name: "uppercase", input: "SUITABLE", expect: VerdictSuitable},
		{name: "surrounding whitespace", input: "  not_suitable ", expect: VerdictNotSuitable},
		{name: "spaces instead of underscore", input: "worth considering", expect: VerdictWorthConsidering},
		{name: "dashes instead of underscore", input: "worth-considering", expect: VerdictWorthConsidering},
		{name: "free text is rejected", input: "the candidate seems fine", wantErr: true},
		{name: "empty is rejected", input: "", wantErr: true},
		{name: "partial match is rejected", input: "suit", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			verdict, err := ParseVerdict(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %q", verdict)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if verdict != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, verdict)
			}
		})
	}
}
