package server

import "testing"

func TestSanitizeBase(t *testing.T) {
	cases := map[string]string{
		"":        "",
		"/":       "",
		"api":     "/api",
		"/api":    "/api",
		"/api/":   "/api",
		" /api ":  "/api",
		"/a/b///": "/a/b",
	}
	for in, want := range cases {
		if got := sanitizeBase(in); got != want {
			t.Errorf("sanitizeBase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsSafeName(t *testing.T) {
	good := []string{"redis", "maria-db", "svc_1", "a.b"}
	for _, s := range good {
		if !isSafeName(s) {
			t.Errorf("isSafeName(%q) = false, want true", s)
		}
	}
	bad := []string{"", "..", "a/b", `a\b`, "a b", "x..y", "café"}
	for _, s := range bad {
		if isSafeName(s) {
			t.Errorf("isSafeName(%q) = true, want false", s)
		}
	}
}

func TestIsSafeAbsPath(t *testing.T) {
	if !isSafeAbsPath("") {
		t.Error("empty path should pass through")
	}
	if !isSafeAbsPath("/opt/redis/redis-server") {
		t.Error("clean absolute path should be accepted")
	}
	for _, p := range []string{"relative/bin", "./bin", "/opt/../etc/passwd"} {
		if isSafeAbsPath(p) {
			t.Errorf("isSafeAbsPath(%q) = true, want false", p)
		}
	}
}
