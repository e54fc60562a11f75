package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                    "/",
		"/metrics":                            "/metrics",
		"/v1/events":                          "/v1/events",
		"/v1/events/abc":                      "/v1/events/:id",
		"/v1/events/abc/registrations":        "/v1/events/:id/registrations",
		"/v1/events/abc/registrations/stream": "/v1/events/:id/registrations/stream",
		"/v1/events/abc/extra":                "/v1/events/abc/extra",
		"/v1/events?limit=10":                 "/v1/events",
		"/v1/organizer/events":                "/v1/organizer/events",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
