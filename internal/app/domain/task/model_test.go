package task

import (
	"strings"
	"testing"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"", StatusTodo, false},
		{"TODO", StatusTodo, false},
		{"IN_PROGRESS", StatusInProgress, false},
		{"DONE", StatusDone, false},
		{"  DONE  ", StatusDone, false},
		{"done", "", true},
		{"PENDING", "", true},
	}

	for _, tc := range cases {
		got, err := ParseStatus(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseStatus(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTaskValidate(t *testing.T) {
	valid := Task{Title: "write report", Status: StatusTodo}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}

	short := Task{Title: "ab", Status: StatusTodo}
	if err := short.Validate(); err == nil {
		t.Fatalf("expected error for short title")
	}

	long := Task{Title: strings.Repeat("x", TitleMaxLen+1), Status: StatusTodo}
	if err := long.Validate(); err == nil {
		t.Fatalf("expected error for long title")
	}

	bigDesc := Task{Title: "fine", Status: StatusTodo, Description: strings.Repeat("d", DescriptionMaxLen+1)}
	if err := bigDesc.Validate(); err == nil {
		t.Fatalf("expected error for long description")
	}

	badStatus := Task{Title: "fine", Status: Status("WAITING")}
	if err := badStatus.Validate(); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}
