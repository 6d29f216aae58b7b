package wizard

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	OTPLength      = 6
	ResendCooldown = 60 * time.Second
)

// ValidOTP reports whether code is exactly six digits. Verification is
// disabled until it is.
func ValidOTP(code string) bool {
	code = strings.TrimSpace(code)
	if len(code) != OTPLength {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var ErrCooldown = errors.New("resend is cooling down")

// CooldownError carries the whole seconds left before a resend.
type CooldownError struct {
	Remaining int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: %ds left", ErrCooldown, e.Remaining)
}

func (e *CooldownError) Unwrap() error { return ErrCooldown }

// Cooldown counts down in whole seconds to the next allowed resend.
type Cooldown struct {
	Until time.Time `json:"until"`
}

func StartCooldown(now time.Time, d time.Duration) Cooldown {
	return Cooldown{Until: now.Add(d)}
}

// Remaining returns the seconds left, rounded up; zero means ready.
func (c Cooldown) Remaining(now time.Time) int {
	left := c.Until.Sub(now)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

func (c Cooldown) Ready(now time.Time) bool {
	return c.Remaining(now) == 0
}

func (c Cooldown) check(now time.Time) error {
	if left := c.Remaining(now); left > 0 {
		return &CooldownError{Remaining: left}
	}
	return nil
}
