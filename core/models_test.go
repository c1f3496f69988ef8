package core

import (
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "ascii", content: "test content"},
		{name: "empty string", content: ""},
		{name: "cjk", content: "机器学习的基本概念与方法"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id1 := IDFromContent(tt.content)
			id2 := IDFromContent(tt.content)
			if id1 != id2 {
				t.Errorf("IDFromContent() produced different IDs for same content: %d vs %d", id1, id2)
			}
		})
	}

	if IDFromContent("a") == IDFromContent("b") {
		t.Error("IDFromContent() produced the same ID for different content")
	}
}

func TestCharCountUsesCodePoints(t *testing.T) {
	if got := CharCount("机器学习"); got != 4 {
		t.Errorf("CharCount() = %d, want 4", got)
	}
	if got := TrimmedCharCount("  ab c \n"); got != 4 {
		t.Errorf("TrimmedCharCount() = %d, want 4", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 1},
		{"abc", 1},
		{"abcd", 1},
		{"abcde", 2},
		{"机器学习机器学习机", 3},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestSourceTypeFor(t *testing.T) {
	tests := map[ResourceType]SourceType{
		ResourceTypeVideo:    SourceTypeTranscript,
		ResourceTypePPT:      SourceTypeSlide,
		ResourceTypePDF:      SourceTypePDF,
		ResourceTypeMarkdown: SourceTypeMarkdown,
		ResourceTypeText:     SourceTypeText,
	}
	for in, want := range tests {
		if got := SourceTypeFor(in); got != want {
			t.Errorf("SourceTypeFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIDMUSRoundTrip(t *testing.T) {
	for _, id := range []ID{1, 127, 128, 1 << 40} {
		buf := make([]byte, IDMUS.Size(id))
		IDMUS.Marshal(id, buf)
		got, n, err := IDMUS.Unmarshal(buf)
		if err != nil {
			t.Fatalf("Unmarshal(%d) error = %v", id, err)
		}
		if got != id || n != len(buf) {
			t.Errorf("Unmarshal() = (%d, %d), want (%d, %d)", got, n, id, len(buf))
		}
	}
}
