package chat

import (
	"strings"
	"testing"

	"github.com/zhouzirui/nymia/internal/model/chat"
)

func TestSanitizeContent(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		expect string
	}{
		{
			name:   "plain text untouched",
			input:  "Hello there!",
			expect: "Hello there!",
		},
		{
			name:   "script block removed",
			input:  `before <script type="text/javascript">alert("x")</script> after`,
			expect: "before  after",
		},
		{
			name:   "script block case insensitive",
			input:  "a<SCRIPT>bad()</SCRIPT>b",
			expect: "ab",
		},
		{
			name:   "style block removed",
			input:  "x<style>.c{color:red}</style>y",
			expect: "xy",
		},
		{
			name:   "remaining tags stripped",
			input:  "<p>Hi <b>you</b></p>",
			expect: "Hi you",
		},
		{
			name:   "whitespace trimmed",
			input:  "  <div> padded </div>  ",
			expect: "padded",
		},
	}

	for _, tc := range cases {
		if got := sanitizeContent(tc.input); got != tc.expect {
			t.Fatalf("%s: sanitizeContent(%q) = %q, want %q", tc.name, tc.input, got, tc.expect)
		}
	}
}

func TestSanitizeContentLeavesNoTagSubstrings(t *testing.T) {
	inputs := []string{
		"<script>a()</script><p>hi</p>",
		"<style>s</style><i>x</i><br/>",
		"plain <unknown attr=1>mixed</unknown>",
	}

	for _, input := range inputs {
		got := sanitizeContent(input)
		if strings.Contains(got, "<") || strings.Contains(got, ">") {
			t.Fatalf("sanitizeContent(%q) left markup: %q", input, got)
		}
		if strings.Contains(got, "a()") || strings.Contains(got, "s{") {
			t.Fatalf("sanitizeContent(%q) leaked block content: %q", input, got)
		}
	}
}

func TestNormalizeAssistantReplyAudioPassthrough(t *testing.T) {
	raw := `{"content":"<b>Hello</b>","audio_url":"https://cdn.example.com/tts/abc.mp3"}`

	content, audioURL := normalizeAssistantReply(raw)
	if content != "<b>Hello</b>" {
		t.Fatalf("audio reply content must pass through verbatim, got %q", content)
	}
	if audioURL != "https://cdn.example.com/tts/abc.mp3" {
		t.Fatalf("unexpected audio url: %q", audioURL)
	}
}

func TestNormalizeAssistantReplyProseFallback(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		expect string
	}{
		{name: "not json", raw: "  <p>plain prose</p>  ", expect: "plain prose"},
		{name: "json without audio_url", raw: `{"content":"hi"}`, expect: `{"content":"hi"}`},
		{name: "json without content", raw: `{"audio_url":"u"}`, expect: `{"audio_url":"u"}`},
	}

	for _, tc := range cases {
		content, audioURL := normalizeAssistantReply(tc.raw)
		if content != tc.expect {
			t.Fatalf("%s: content = %q, want %q", tc.name, content, tc.expect)
		}
		if audioURL != "" {
			t.Fatalf("%s: unexpected audio url %q", tc.name, audioURL)
		}
	}
}

func TestLatestAssistantEntryPicksNewest(t *testing.T) {
	entries := []chat.RemoteMessage{
		{Sender: "assistant", Content: "first"},
		{Sender: "user", Content: "question"},
		{Sender: "assistant", Content: "second"},
		{Sender: "user", Content: "followup"},
	}

	entry, ok := latestAssistantEntry(entries)
	if !ok {
		t.Fatal("expected an assistant entry")
	}
	if entry.Content != "second" {
		t.Fatalf("expected newest assistant entry, got %q", entry.Content)
	}
}

func TestLatestAssistantEntryAbsent(t *testing.T) {
	entries := []chat.RemoteMessage{
		{Sender: "user", Content: "anyone there?"},
	}
	if _, ok := latestAssistantEntry(entries); ok {
		t.Fatal("expected no assistant entry")
	}
	if _, ok := latestAssistantEntry(nil); ok {
		t.Fatal("expected no assistant entry for empty list")
	}
}
