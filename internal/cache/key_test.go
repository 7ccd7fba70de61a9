package cache

import "testing"

func TestKeyDeterminism(t *testing.T) {
	first, err := ForURL("https://raw.example.com/acme/tools/main/gohome.sh")
	if err != nil {
		t.Fatalf("key error: %v", err)
	}
	second, err := ForURL("https://raw.example.com/acme/tools/main/gohome.sh")
	if err != nil {
		t.Fatalf("key error: %v", err)
	}
	if first.String() != second.String() {
		t.Fatalf("same URL must produce identical keys: %q vs %q", first, second)
	}
	if first.Filename() != second.Filename() {
		t.Fatalf("same URL must produce identical filenames")
	}
}

func TestKeyCanonicalization(t *testing.T) {
	cases := []struct {
		name string
		a    string
		b    string
	}{
		{"host case", "https://Raw.Example.COM/x.sh", "https://raw.example.com/x.sh"},
		{"default https port", "https://raw.example.com:443/x.sh", "https://raw.example.com/x.sh"},
		{"default http port", "http://raw.example.com:80/x.sh", "http://raw.example.com/x.sh"},
		{"fragment dropped", "https://raw.example.com/x.sh#frag", "https://raw.example.com/x.sh"},
		{"trailing host dot", "https://raw.example.com./x.sh", "https://raw.example.com/x.sh"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keyA, err := ForURL(tc.a)
			if err != nil {
				t.Fatalf("key error: %v", err)
			}
			keyB, err := ForURL(tc.b)
			if err != nil {
				t.Fatalf("key error: %v", err)
			}
			if keyA.String() != keyB.String() {
				t.Fatalf("expected equal keys, got %q vs %q", keyA, keyB)
			}
		})
	}
}

func TestKeyDistinguishesResources(t *testing.T) {
	cases := []struct {
		name string
		a    string
		b    string
	}{
		{"path", "https://raw.example.com/a.sh", "https://raw.example.com/b.sh"},
		{"query version token", "https://raw.example.com/a.sh?v=1", "https://raw.example.com/a.sh?v=2"},
		{"query presence", "https://raw.example.com/a.sh", "https://raw.example.com/a.sh?v=1"},
		{"path case", "https://raw.example.com/A.sh", "https://raw.example.com/a.sh"},
		{"scheme", "http://raw.example.com/a.sh", "https://raw.example.com/a.sh"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			keyA, err := ForURL(tc.a)
			if err != nil {
				t.Fatalf("key error: %v", err)
			}
			keyB, err := ForURL(tc.b)
			if err != nil {
				t.Fatalf("key error: %v", err)
			}
			if keyA.String() == keyB.String() {
				t.Fatalf("distinct resources must not collapse onto one key: %q", keyA)
			}
		})
	}
}

func TestKeyRejectsInvalidURLs(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com/x", "not a url", "/relative/path"} {
		if _, err := ForURL(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestKeyEmptyPathNormalizedToRoot(t *testing.T) {
	withSlash, err := ForURL("https://raw.example.com/")
	if err != nil {
		t.Fatalf("key error: %v", err)
	}
	withoutSlash, err := ForURL("https://raw.example.com")
	if err != nil {
		t.Fatalf("key error: %v", err)
	}
	if withSlash.String() != withoutSlash.String() {
		t.Fatalf("bare host and root path should share a key: %q vs %q", withSlash, withoutSlash)
	}
}
