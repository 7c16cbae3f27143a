package innertube

import (
	"testing"

	"github.com/ysmood/gson"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"simple text", `{"simpleText": "hello"}`, "hello"},
		{"runs concatenated", `{"runs": [{"text": "a"}, {"text": "b"}, {"text": "c"}]}`, "abc"},
		{"runs with junk entries", `{"runs": [{"text": "a"}, 7, {"bold": true}, {"text": "b"}]}`, "ab"},
		{"view-model content", `{"content": "vm text"}`, "vm text"},
		{"empty runs", `{"runs": []}`, ""},
		{"not text-bearing", `{"other": 1}`, ""},
		{"scalar node", `"bare string"`, ""},
		{"array node", `[{"simpleText": "x"}]`, ""},
		{"null node", `null`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(gson.NewFrom(tt.doc)); got != tt.want {
				t.Errorf("Text(%s) = %q, want %q", tt.doc, got, tt.want)
			}
		})
	}
}

func TestText_SimpleTextWinsOverOtherEncodings(t *testing.T) {
	doc := `{"content": "third", "runs": [{"text": "second"}], "simpleText": "first"}`
	if got := Text(gson.NewFrom(doc)); got != "first" {
		t.Errorf("Text = %q, want simpleText to be authoritative", got)
	}
}

func TestText_RunsWinOverContent(t *testing.T) {
	doc := `{"content": "second", "runs": [{"text": "first"}]}`
	if got := Text(gson.NewFrom(doc)); got != "first" {
		t.Errorf("Text = %q, want runs before content", got)
	}
}
