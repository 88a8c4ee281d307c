package noteauth_test

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	oa "github.com/notably/noteauth"
)

var codeRegexp = regexp.MustCompile(`\b(\d{6})\b`)

// captureSender records dispatched messages so tests can read the codes
// that Issue never returns.
type captureSender struct {
	mu   sync.Mutex
	tos  []string
	body []string
}

func (c *captureSender) Send(to, subject, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tos = append(c.tos, to)
	c.body = append(c.body, body)
	return nil
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tos)
}

func (c *captureSender) lastCode(t *testing.T) string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.body) == 0 {
		t.Fatal("no message was dispatched")
	}
	m := codeRegexp.FindStringSubmatch(c.body[len(c.body)-1])
	if m == nil {
		t.Fatalf("no code found in message body: %s", c.body[len(c.body)-1])
	}
	return m[1]
}

// testClock is a controllable clock for expiry tests.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Now()}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestOtpSingleUse(t *testing.T) {
	sender := &captureSender{}
	store := oa.NewOtpStore(sender, nil)
	defer store.Close()

	if err := store.Issue(context.Background(), "ann@x.com"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	code := sender.lastCode(t)

	if !store.Verify("ann@x.com", code) {
		t.Fatal("expected first verify with correct code to succeed")
	}
	if store.Verify("ann@x.com", code) {
		t.Fatal("expected second verify with same code to fail (single-use)")
	}
}

func TestOtpWrongCodeDoesNotConsume(t *testing.T) {
	sender := &captureSender{}
	store := oa.NewOtpStore(sender, nil)
	defer store.Close()

	store.Issue(context.Background(), "ann@x.com")
	code := sender.lastCode(t)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if store.Verify("ann@x.com", wrong) {
		t.Fatal("expected wrong code to fail")
	}
	if !store.Verify("ann@x.com", code) {
		t.Fatal("expected correct code to still succeed after a failed attempt")
	}
}

func TestOtpExpiry(t *testing.T) {
	sender := &captureSender{}
	clock := newTestClock()
	store := oa.NewOtpStore(sender, &oa.OtpConfig{Clock: clock.Now})
	defer store.Close()

	store.Issue(context.Background(), "ann@x.com")
	code := sender.lastCode(t)

	clock.Advance(oa.OtpTTL + time.Second)
	if store.Verify("ann@x.com", code) {
		t.Fatal("expected verify after expiry window to fail even with correct code")
	}
}

func TestOtpReissueInvalidatesPrevious(t *testing.T) {
	sender := &captureSender{}
	store := oa.NewOtpStore(sender, nil)
	defer store.Close()

	store.Issue(context.Background(), "ann@x.com")
	first := sender.lastCode(t)
	store.Issue(context.Background(), "ann@x.com")
	second := sender.lastCode(t)

	if first != second && store.Verify("ann@x.com", first) {
		t.Fatal("expected first code to be invalidated by reissue")
	}
	if !store.Verify("ann@x.com", second) {
		t.Fatal("expected most recent code to be valid")
	}
}

func TestOtpNormalizesEmail(t *testing.T) {
	sender := &captureSender{}
	store := oa.NewOtpStore(sender, nil)
	defer store.Close()

	store.Issue(context.Background(), "  Ann@X.Com ")
	code := sender.lastCode(t)

	if !store.Verify("ann@x.com", code) {
		t.Fatal("expected verify with normalized email to succeed")
	}
}

func TestOtpUnknownEmail(t *testing.T) {
	store := oa.NewOtpStore(nil, nil)
	defer store.Close()

	if store.Verify("nobody@x.com", "123456") {
		t.Fatal("expected verify with no issued code to fail")
	}
}

func TestOtpExpire(t *testing.T) {
	sender := &captureSender{}
	store := oa.NewOtpStore(sender, nil)
	defer store.Close()

	store.Issue(context.Background(), "ann@x.com")
	code := sender.lastCode(t)
	store.Expire("ann@x.com")

	if store.Verify("ann@x.com", code) {
		t.Fatal("expected verify after explicit expire to fail")
	}
}

// TestOtpConcurrency exercises issue/verify/expire interleaving for the
// same and different emails under the race detector.
func TestOtpConcurrency(t *testing.T) {
	sender := &captureSender{}
	store := oa.NewOtpStore(sender, &oa.OtpConfig{SweepInterval: time.Millisecond})
	defer store.Close()

	emails := []string{"a@x.com", "b@x.com", "c@x.com"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				email := emails[(i+j)%len(emails)]
				store.Issue(context.Background(), email)
				store.Verify(email, "123456")
				store.Expire(email)
			}
		}(i)
	}
	wg.Wait()
}

func TestGenerateOtpCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, err := oa.GenerateOtpCode(6)
		if err != nil {
			t.Fatalf("GenerateOtpCode failed: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digit code, got %q", code)
		}
		for _, ch := range code {
			if ch < '0' || ch > '9' {
				t.Fatalf("expected numeric code, got %q", code)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("expected some variety across generated codes")
	}
}
