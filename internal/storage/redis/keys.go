package redis

import (
	"fmt"
	"time"
)

const (
	ViewStateTTL       = 30 * time.Minute
	ConversationTTL    = 30 * time.Minute
	WizardStateTTL     = 30 * time.Minute
	TokensTTL          = 7 * 24 * time.Hour
	SequenceTTL        = time.Hour
	RateLimitWindowTTL = 1 * time.Minute
)

func ViewStateKey(userID int64, page string) string {
	return fmt.Sprintf("view:user:%d:%s", userID, page)
}

func ConversationKey(userID int64) string {
	return fmt.Sprintf("state:user:%d", userID)
}

func WizardKey(userID int64, wizard string) string {
	return fmt.Sprintf("wizard:user:%d:%s", userID, wizard)
}

func TokensKey(userID int64) string {
	return fmt.Sprintf("tokens:user:%d", userID)
}

func SequenceKey(userID int64, page string) string {
	return fmt.Sprintf("seq:user:%d:%s", userID, page)
}

func OTPCooldownKey(email string) string {
	return fmt.Sprintf("cooldown:otp:%s", email)
}

func RateLimitKey(userID int64) string {
	return fmt.Sprintf("ratelimit:user:%d", userID)
}

func tempKey(userID int64, key string) string {
	return fmt.Sprintf("temp:user:%d:%s", userID, key)
}
