package server

import (
	"bytes"
	"net/http"
	"reflect"
	"strings"
	"testing"
)

func TestCookiesParsing(t *testing.T) {
	header := http.Header{}
	header.Add("Cookie", "a=1; b=2; malformed; c=x=y")
	c := New("GET", "/", "", header, nil)

	got := c.Cookies()
	want := map[string]string{"a": "1", "b": "2", "c": "x=y"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Cookies() = %v, want %v", got, want)
	}
}

func TestCookiesMultipleHeaders(t *testing.T) {
	header := http.Header{}
	header.Add("Cookie", "a=1")
	header.Add("Cookie", "b=2")
	c := New("GET", "/", "", header, nil)

	got := c.Cookies()
	if got["a"] != "1" || got["b"] != "2" {
		t.Fatalf("Cookies() = %v, want both headers parsed", got)
	}
}

func TestCookiesCached(t *testing.T) {
	header := http.Header{}
	header.Add("Cookie", "a=1")
	c := New("GET", "/", "", header, nil)

	c.Cookies()
	header.Set("Cookie", "a=2")
	if got := c.Cookies(); got["a"] != "1" {
		t.Fatal("expected the first parse to be cached")
	}
}

func TestBodyReadOnceAndCached(t *testing.T) {
	// bytes.Buffer drains on read, so a second Body call can only
	// succeed from the cache.
	buf := bytes.NewBufferString("hello body")
	c := New("POST", "/", "", nil, buf)

	first, err := c.Body()
	if err != nil {
		t.Fatalf("Body() error: %v", err)
	}
	if string(first) != "hello body" {
		t.Fatalf("Body() = %q", first)
	}
	second, err := c.Body()
	if err != nil {
		t.Fatalf("second Body() error: %v", err)
	}
	if string(second) != "hello body" {
		t.Fatalf("second Body() = %q, want cached bytes", second)
	}
}

func TestBodyNilStream(t *testing.T) {
	c := New("GET", "/", "", nil, nil)
	b, err := c.Body()
	if err != nil {
		t.Fatalf("Body() error: %v", err)
	}
	if len(b) != 0 {
		t.Fatalf("Body() = %q, want empty", b)
	}
}

func TestJSONDecoding(t *testing.T) {
	t.Run("valid object", func(t *testing.T) {
		c := New("POST", "/", "", nil, strings.NewReader(`{"x":1}`))
		v, err := c.JSON()
		if err != nil {
			t.Fatalf("JSON() error: %v", err)
		}
		m, ok := v.(map[string]any)
		if !ok || m["x"] != float64(1) {
			t.Fatalf("JSON() = %v, want map with x=1", v)
		}
	})

	t.Run("empty body yields no value", func(t *testing.T) {
		c := New("POST", "/", "", nil, strings.NewReader(""))
		v, err := c.JSON()
		if err != nil {
			t.Fatalf("JSON() error: %v", err)
		}
		if v != nil {
			t.Fatalf("JSON() = %v, want nil", v)
		}
	})

	t.Run("malformed JSON surfaces the error", func(t *testing.T) {
		c := New("POST", "/", "", nil, strings.NewReader("{not json"))
		if _, err := c.JSON(); err == nil {
			t.Fatal("expected a decoding error")
		}
	})
}

func TestQueryMultiValued(t *testing.T) {
	c := New("GET", "/", "a=1&a=2&b=3", nil, nil)
	if got := c.Query["a"]; !reflect.DeepEqual(got, []string{"1", "2"}) {
		t.Fatalf("Query[a] = %v, want [1 2]", got)
	}
	if c.Query.Get("b") != "3" {
		t.Fatalf("Query[b] = %v", c.Query["b"])
	}
}

func TestClearSession(t *testing.T) {
	c := New("GET", "/", "", nil, nil)
	c.BindSession("micropy_session", map[string]any{"user": "bob"})

	c.ClearSession()

	if len(c.Session) != 0 {
		t.Fatalf("Session = %v, want empty", c.Session)
	}
	headers := c.ExtraHeaders()
	if len(headers) != 1 {
		t.Fatalf("ExtraHeaders = %v, want one deletion header", headers)
	}
	h := headers[0]
	if h.Name != "Set-Cookie" {
		t.Fatalf("header name = %q", h.Name)
	}
	for _, part := range []string{"micropy_session=deleted", "Path=/", "Expires=Thu, 01 Jan 1970", "HttpOnly"} {
		if !strings.Contains(h.Value, part) {
			t.Fatalf("deletion header %q missing %q", h.Value, part)
		}
	}
}

func TestBindSessionNil(t *testing.T) {
	c := New("GET", "/", "", nil, nil)
	c.BindSession("s", nil)
	if c.Session == nil {
		t.Fatal("BindSession(nil) must yield an empty, usable map")
	}
	c.Session["k"] = "v"
}

func TestValues(t *testing.T) {
	c := New("GET", "/", "", nil, nil)
	type key struct{}
	if c.Value(key{}) != nil {
		t.Fatal("unset value should be nil")
	}
	c.SetValue(key{}, 42)
	if c.Value(key{}) != 42 {
		t.Fatalf("Value = %v, want 42", c.Value(key{}))
	}
}

func TestSetResult(t *testing.T) {
	c := New("GET", "/", "", nil, nil)
	if c.Status() != 0 {
		t.Fatalf("Status before resolution = %d, want 0", c.Status())
	}
	c.SetResult(404, nil)
	if c.Status() != 404 || c.HandlerError() != nil {
		t.Fatalf("SetResult not recorded: %d %v", c.Status(), c.HandlerError())
	}
}
