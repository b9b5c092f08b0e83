package pipeline

import "testing"

func TestResolveTitle(t *testing.T) {
	url := sp("https://example.com/a")
	cases := []struct {
		name   string
		extras *string
		url    *string
		want   *string
	}{
		{name: "marker", extras: sp("<PAGE_LINKS>x</PAGE_LINKS><PAGE_TITLE> AI Boom </PAGE_TITLE>"), url: url, want: sp("AI Boom")},
		{name: "empty marker", extras: sp("<PAGE_TITLE>  </PAGE_TITLE>"), url: url, want: url},
		{name: "unterminated", extras: sp("<PAGE_TITLE>AI Boom"), url: url, want: url},
		{name: "no extras", extras: nil, url: url, want: url},
		{name: "no extras no url", extras: nil, url: nil, want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveTitle(tc.extras, tc.url)
			if tc.want == nil {
				if got != nil {
					t.Fatalf("got %q want nil", *got)
				}
				return
			}
			if got == nil || *got != *tc.want {
				t.Fatalf("got %v want %q", got, *tc.want)
			}
		})
	}
}

func TestResolveSourceName(t *testing.T) {
	cases := []struct {
		name  string
		input *string
		want  *string
	}{
		{name: "https", input: sp("https://www.example.com/news/1"), want: sp("www.example.com")},
		{name: "port", input: sp("http://example.com:8080/a"), want: sp("example.com:8080")},
		{name: "no scheme", input: sp("example.com/path"), want: sp("example.com/path")},
		{name: "unparsable", input: sp("http://[::1"), want: sp("http://[::1")},
		{name: "empty", input: sp(""), want: sp("")},
		{name: "nil", input: nil, want: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveSourceName(tc.input)
			if tc.want == nil {
				if got != nil {
					t.Fatalf("got %q want nil", *got)
				}
				return
			}
			if got == nil || *got != *tc.want {
				t.Fatalf("got %v want %q", got, *tc.want)
			}
		})
	}
}
