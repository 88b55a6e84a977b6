package modeljson

import "testing"

func TestParse(t *testing.T) {
	cases := []struct {
		name   string
		text   string
		wantOK bool
		key    string
		val    string
	}{
		{
			name:   "plain_object",
			text:   `{"mood":"calm"}`,
			wantOK: true,
			key:    "mood",
			val:    "calm",
		},
		{
			name:   "json_fence",
			text:   "```json\n{\"mood\":\"calm\"}\n```",
			wantOK: true,
			key:    "mood",
			val:    "calm",
		},
		{
			name:   "bare_fence",
			text:   "```\n{\"mood\":\"calm\"}\n```",
			wantOK: true,
			key:    "mood",
			val:    "calm",
		},
		{
			name:   "fence_with_surrounding_whitespace",
			text:   "  \n```json\n{\"mood\":\"calm\"}\n```  \n",
			wantOK: true,
			key:    "mood",
			val:    "calm",
		},
		{
			name:   "prose_not_json",
			text:   "I could not produce a summary this time.",
			wantOK: false,
		},
		{
			name:   "object_wrapped_in_prose",
			text:   "Here is the memory you asked for: {\"mood\":\"calm\"} and that is all.",
			wantOK: true,
			key:    "mood",
			val:    "calm",
		},
		{
			name:   "unbalanced_braces",
			text:   "} nothing useful {",
			wantOK: false,
		},
		{
			name:   "empty",
			text:   "",
			wantOK: false,
		},
		{
			name:   "json_array_not_object",
			text:   `[1,2,3]`,
			wantOK: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obj, ok := Parse(tc.text)
			if ok != tc.wantOK {
				t.Fatalf("Parse(%q) ok=%v, want %v", tc.text, ok, tc.wantOK)
			}
			if !tc.wantOK {
				return
			}
			got, _ := obj[tc.key].(string)
			if got != tc.val {
				t.Fatalf("Parse(%q)[%q]=%q, want %q", tc.text, tc.key, got, tc.val)
			}
		})
	}
}

func TestStripFencesPassthrough(t *testing.T) {
	in := `{"a":1}`
	if got := StripFences(in); got != in {
		t.Fatalf("StripFences(%q)=%q, want unchanged", in, got)
	}
}
