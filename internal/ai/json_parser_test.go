package ai

import (
	"strings"
	"testing"
)

func TestParseJSON_Direct(t *testing.T) {
	got, err := parseJSON[evalPayload](`{"score": 82, "approved": true, "feedback": "solid"}`, "test")
	if err != nil {
		t.Fatalf("parseJSON failed: %v", err)
	}
	if got.Score != 82 || !got.Approved || got.Feedback != "solid" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestParseJSON_CodeFences(t *testing.T) {
	inputs := []string{
		"```json\n{\"score\": 70}\n```",
		"```\n{\"score\": 70}\n```",
		"```json{\"score\": 70}```",
	}
	for _, input := range inputs {
		got, err := parseJSON[evalPayload](input, "test")
		if err != nil {
			t.Errorf("parseJSON(%q) failed: %v", input, err)
			continue
		}
		if got.Score != 70 {
			t.Errorf("parseJSON(%q) score = %d, want 70", input, got.Score)
		}
	}
}

func TestParseJSON_TrailingComma(t *testing.T) {
	got, err := parseJSON[evalPayload](`{"score": 65, "improvements": ["more contrast",],}`, "test")
	if err != nil {
		t.Fatalf("parseJSON failed: %v", err)
	}
	if got.Score != 65 || len(got.Improvements) != 1 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestParseJSON_MixedContent(t *testing.T) {
	input := `Here is my assessment of the image:

{"score": 91, "approved": true, "feedback": "excellent work"}

Let me know if you need more detail.`
	got, err := parseJSON[evalPayload](input, "test")
	if err != nil {
		t.Fatalf("parseJSON failed: %v", err)
	}
	if got.Score != 91 {
		t.Errorf("score = %d, want 91", got.Score)
	}
}

func TestParseJSON_ArrayNotTruncated(t *testing.T) {
	got, err := parseJSON[[]int]("[1, 2, 3]", "test")
	if err != nil {
		t.Fatalf("parseJSON failed: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("len = %d, want 3", len(got))
	}
}

func TestParseJSON_Failures(t *testing.T) {
	for _, input := range []string{"", "   ", "not json at all", "{broken"} {
		if _, err := parseJSON[evalPayload](input, "test"); err == nil {
			t.Errorf("parseJSON(%q) succeeded, want error", input)
		}
	}
}

func TestParseJSON_ErrorCarriesContext(t *testing.T) {
	_, err := parseJSON[evalPayload]("garbage", "evaluation response")
	if err == nil || !strings.Contains(err.Error(), "evaluation response") {
		t.Errorf("error %v should name its context", err)
	}
}

func TestParseJSON_LongResponseTruncatedInError(t *testing.T) {
	_, err := parseJSON[evalPayload]("x"+strings.Repeat("y", 2000), "test")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Error()) > 700 {
		t.Errorf("error message is %d chars, should truncate the response", len(err.Error()))
	}
}
