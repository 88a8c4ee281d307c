package noteauth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"
)

// Default OTP policy
const (
	OtpCodeLength    = 6
	OtpTTL           = 5 * time.Minute
	OtpSweepInterval = time.Minute
)

// OtpStore manages short-lived one-time passcodes keyed by normalized email.
type OtpStore interface {
	// Issue generates a fresh code for the email, replacing any live one,
	// and dispatches it through the configured sender. The code is never
	// returned to the caller.
	Issue(ctx context.Context, email string) error

	// Verify checks a submitted code. A successful verification consumes
	// the entry, so a code can be redeemed at most once.
	Verify(email, code string) bool

	// Expire drops any live entry for the email.
	Expire(email string)
}

type otpEntry struct {
	Code      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (e *otpEntry) expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// MemoryOtpStore is the in-process OtpStore. Entries self-expire, so no
// eviction policy beyond the TTL is needed. All map access is serialized
// under one mutex so issue, verify and the sweeper never interleave on a
// half-written entry.
type MemoryOtpStore struct {
	mu      sync.Mutex
	entries map[string]*otpEntry

	sender Sender
	ttl    time.Duration
	now    func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// OtpConfig customizes a MemoryOtpStore. The zero value gives the default
// 5 minute TTL, 1 minute sweep interval and wall-clock time.
type OtpConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration

	// Clock overrides time.Now, for tests with controllable clocks.
	Clock func() time.Time
}

// NewOtpStore creates a MemoryOtpStore that delivers codes via sender and
// starts the background sweeper. Callers own the store and should Close it
// when done.
func NewOtpStore(sender Sender, config *OtpConfig) *MemoryOtpStore {
	if config == nil {
		config = &OtpConfig{}
	}
	ttl := config.TTL
	if ttl <= 0 {
		ttl = OtpTTL
	}
	sweep := config.SweepInterval
	if sweep <= 0 {
		sweep = OtpSweepInterval
	}
	now := config.Clock
	if now == nil {
		now = time.Now
	}

	s := &MemoryOtpStore{
		entries: make(map[string]*otpEntry),
		sender:  sender,
		ttl:     ttl,
		now:     now,
		done:    make(chan struct{}),
	}
	go s.sweep(sweep)
	return s
}

func (s *MemoryOtpStore) Issue(ctx context.Context, email string) error {
	code, err := GenerateOtpCode(OtpCodeLength)
	if err != nil {
		return err
	}

	email = NormalizeEmail(email)
	now := s.now()

	s.mu.Lock()
	// A new generation replaces any existing entry for the email, so only
	// the most recently issued code is ever valid.
	s.entries[email] = &otpEntry{
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.mu.Unlock()

	if s.sender == nil {
		return nil
	}

	body := fmt.Sprintf("Your OTP code is %s.\nNOTE: This code is valid for %d minutes. If you did not request this, please ignore this email.",
		code, int(s.ttl.Minutes()))
	if err := s.sender.Send(email, "Your OTP Code", body); err != nil {
		// Delivery is fire-and-forget from our perspective: log, don't retry.
		log.Printf("error delivering otp to %s: %v", email, err)
	}
	return nil
}

func (s *MemoryOtpStore) Verify(email, code string) bool {
	email = NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[email]
	if !ok {
		return false
	}
	if entry.expired(s.now()) {
		delete(s.entries, email)
		return false
	}
	if subtle.ConstantTimeCompare([]byte(entry.Code), []byte(code)) != 1 {
		return false
	}

	// Single-use: consume on success so an observed code cannot be replayed
	// within the validity window.
	delete(s.entries, email)
	return true
}

func (s *MemoryOtpStore) Expire(email string) {
	email = NormalizeEmail(email)
	s.mu.Lock()
	delete(s.entries, email)
	s.mu.Unlock()
}

// Close stops the background sweeper. Safe to call more than once.
func (s *MemoryOtpStore) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// sweep periodically removes expired entries. Verify also checks expiry
// lazily, so the sweeper only bounds memory, never correctness.
func (s *MemoryOtpStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := s.now()
			s.mu.Lock()
			for email, entry := range s.entries {
				if entry.expired(now) {
					delete(s.entries, email)
				}
			}
			s.mu.Unlock()
		}
	}
}

// GenerateOtpCode generates a zero-padded numeric code of the given length
// from a uniform random distribution. Uses crypto/rand via big.Int to avoid
// modulo bias.
func GenerateOtpCode(length int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
