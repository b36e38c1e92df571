package services

import (
	"strings"

	"go.uber.org/zap"
)

// SecurityLogger records security-relevant events on a dedicated zap logger.
type SecurityLogger struct {
	logger *zap.Logger
}

// NewSecurityLogger returns a logger named "security"; a nil logger discards events.
func NewSecurityLogger(logger *zap.Logger) *SecurityLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityLogger{logger: logger.Named("security")}
}

// LogSecurityEvent writes one event with the client address.
func (sl *SecurityLogger) LogSecurityEvent(eventType, details, ipAddress string) {
	sl.logger.Warn(eventType,
		zap.String("details", details),
		zap.String("ip", ipAddress))
}

// SpamDetector flags free-text fields that look like scam or phishing content.
type SpamDetector struct {
	spamWords []string
}

// NewSpamDetector returns a detector loaded with the built-in phrase list.
func NewSpamDetector() *SpamDetector {
	return &SpamDetector{
		spamWords: []string{
			"bitcoin", "btc", "crypto", "wallet", "deposit bonus", "withdraw",
			"investment", "earn money", "make money", "get rich",
			"quick money", "exclusive offer", "free money", "lottery",
			"prize", "winner", "claim your", "verify your account",
			"account suspended", "security alert", "bank transfer",
			"western union", "moneygram", "nigerian prince", "inheritance",
			"credit card", "ssn", "social security", "redeem",
			"graph.org", "external sender", "unknown sender",
			"📃", "📩", "🔑", "🔷", "🗂", "✉️",
		},
	}
}

// IsSpam reports whether message contains any known spam phrase.
func (sd *SpamDetector) IsSpam(message string) bool {
	messageLower := strings.ToLower(message)
	for _, word := range sd.spamWords {
		if strings.Contains(messageLower, word) {
			return true
		}
	}
	return false
}
