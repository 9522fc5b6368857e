package delegate

import (
	"testing"
)

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name    string
		task    Task
		wantErr bool
	}{
		{
			name:    "valid extract task",
			task:    Task{Kind: TaskExtractReport, RunHandle: "run/1", ArchiveURL: "https://x/ca.zip"},
			wantErr: false,
		},
		{
			name:    "valid persist task",
			task:    Task{Kind: TaskPersistReport, RunHandle: "run/1", ReportURL: "https://x/report.html"},
			wantErr: false,
		},
		{
			name:    "extract without archive url",
			task:    Task{Kind: TaskExtractReport, RunHandle: "run/1"},
			wantErr: true,
		},
		{
			name:    "persist without report url",
			task:    Task{Kind: TaskPersistReport, RunHandle: "run/1"},
			wantErr: true,
		},
		{
			name:    "missing run handle",
			task:    Task{Kind: TaskExtractReport, ArchiveURL: "https://x/ca.zip"},
			wantErr: true,
		},
		{
			name:    "unknown kind",
			task:    Task{Kind: "repaint", RunHandle: "run/1"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.task.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	task := Task{Kind: TaskExtractReport, RunHandle: "run/abc", ArchiveURL: "https://x/ca.zip"}

	data, err := EncodeTask(task)
	if err != nil {
		t.Fatalf("EncodeTask() error: %v", err)
	}

	res, err := DecodeResult([]byte(`{"success":true,"url":"https://cdn/r.html"}`))
	if err != nil {
		t.Fatalf("DecodeResult() error: %v", err)
	}
	if !res.Success || res.URL != "https://cdn/r.html" {
		t.Errorf("DecodeResult() = %+v", res)
	}

	if _, err := DecodeResult([]byte("not-json")); err == nil {
		t.Error("DecodeResult() accepted malformed payload")
	}

	if len(data) == 0 {
		t.Error("EncodeTask() produced empty payload")
	}
}

func TestLastLine(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"single line", `{"success":true}`, `{"success":true}`},
		{"logs before result", "extracting archive\nfound report\n{\"success\":true}\n", `{"success":true}`},
		{"trailing whitespace", "{\"success\":false}  \n\n", `{"success":false}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(lastLine([]byte(tt.output))); got != tt.want {
				t.Errorf("lastLine() = %q, want %q", got, tt.want)
			}
		})
	}
}
