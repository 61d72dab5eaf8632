package cache

import (
	"net/http"
	"net/url"
	"testing"
	"time"
)

func TestCache_PutAndGet(t *testing.T) {
	c := New(100)

	header := http.Header{"Content-Type": []string{"application/json"}}
	c.Put("k", 200, header, []byte(`{"ok":true}`), time.Minute)

	e, ok := c.Get("k")
	if !ok {
		t.Fatal("Get() miss for stored key")
	}
	if e.StatusCode != 200 {
		t.Errorf("StatusCode = %d, want 200", e.StatusCode)
	}
	if e.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Header = %v", e.Header)
	}
	if string(e.Body) != `{"ok":true}` {
		t.Errorf("Body = %s", e.Body)
	}
}

func TestCache_MissForUnknownKey(t *testing.T) {
	c := New(100)

	if _, ok := c.Get("absent"); ok {
		t.Error("Get() hit for key never stored")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := New(100)

	base := time.Now()
	c.now = func() time.Time { return base }

	c.Put("k", 200, nil, []byte("body"), 30*time.Second)

	if _, ok := c.Get("k"); !ok {
		t.Fatal("Get() miss before expiry")
	}

	c.now = func() time.Time { return base.Add(31 * time.Second) }
	if _, ok := c.Get("k"); ok {
		t.Error("Get() hit after expiry")
	}
	if c.Size() != 0 {
		t.Errorf("Size() = %d after lazy expiry, want 0", c.Size())
	}
}

func TestCache_ZeroTTLNotStored(t *testing.T) {
	c := New(100)

	c.Put("k", 200, nil, []byte("body"), 0)

	if _, ok := c.Get("k"); ok {
		t.Error("entry stored despite zero TTL")
	}
}

func TestCache_LRUEviction(t *testing.T) {
	c := New(3)

	base := time.Now()
	tick := 0
	c.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	c.Put("a", 200, nil, []byte("a"), time.Hour)
	c.Put("b", 200, nil, []byte("b"), time.Hour)
	c.Put("c", 200, nil, []byte("c"), time.Hour)

	// Touch a and c so b becomes the LRU victim.
	c.Get("a")
	c.Get("c")

	c.Put("d", 200, nil, []byte("d"), time.Hour)

	if _, ok := c.Get("b"); ok {
		t.Error("LRU entry b survived eviction")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("entry %q evicted unexpectedly", key)
		}
	}
}

func TestCache_Sweep(t *testing.T) {
	c := New(100)

	base := time.Now()
	c.now = func() time.Time { return base }

	c.Put("short", 200, nil, []byte("x"), 10*time.Second)
	c.Put("long", 200, nil, []byte("y"), time.Hour)

	c.now = func() time.Time { return base.Add(time.Minute) }

	if removed := c.Sweep(); removed != 1 {
		t.Errorf("Sweep() = %d, want 1", removed)
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("unexpired entry removed by sweep")
	}
}

func TestCache_BodyIsolation(t *testing.T) {
	c := New(100)

	body := []byte("original")
	c.Put("k", 200, nil, body, time.Minute)
	body[0] = 'X'

	e, _ := c.Get("k")
	if string(e.Body) != "original" {
		t.Errorf("stored body aliased caller slice: %s", e.Body)
	}
}

func TestCache_Clear(t *testing.T) {
	c := New(100)

	c.Put("a", 200, nil, []byte("a"), time.Hour)
	c.Put("b", 200, nil, []byte("b"), time.Hour)
	c.Clear()

	if c.Size() != 0 {
		t.Errorf("Size() = %d after Clear, want 0", c.Size())
	}
}

// ============================================================================
// Key Tests
// ============================================================================

func TestKey_QueryOrderIndependent(t *testing.T) {
	q1, _ := url.ParseQuery("city=Madrid&units=metric")
	q2, _ := url.ParseQuery("units=metric&city=Madrid")

	if Key("weather", "GET", "/weather", q1) != Key("weather", "GET", "/weather", q2) {
		t.Error("reordered query produced different keys")
	}
}

func TestKey_Discriminators(t *testing.T) {
	q, _ := url.ParseQuery("city=Madrid")

	base := Key("weather", "GET", "/weather", q)

	variants := []string{
		Key("geo", "GET", "/weather", q),
		Key("weather", "POST", "/weather", q),
		Key("weather", "GET", "/forecast", q),
		Key("weather", "GET", "/weather", url.Values{"city": {"Paris"}}),
		Key("weather", "GET", "/weather", nil),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d collided with base key %q", i, base)
		}
	}
}

func TestKey_MethodCaseInsensitive(t *testing.T) {
	if Key("c", "get", "/p", nil) != Key("c", "GET", "/p", nil) {
		t.Error("method casing changed the key")
	}
}

func TestKey_RepeatedQueryValues(t *testing.T) {
	q1, _ := url.ParseQuery("tag=a&tag=b")
	q2, _ := url.ParseQuery("tag=b&tag=a")

	// Value order within one key is significant.
	if Key("c", "GET", "/p", q1) == Key("c", "GET", "/p", q2) {
		t.Error("reordered repeated values collided")
	}
}
