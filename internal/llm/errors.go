package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/telegram-summary-bot/internal/models"
)

// classify wraps capacity-class failures in models.ErrCapacity so callers can
// branch with errors.Is. Other errors pass through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if isCapacityErr(err) {
		return fmt.Errorf("%w: %v", models.ErrCapacity, err)
	}
	return err
}

// isCapacityErr reports whether the error indicates the model is temporarily
// unable to serve: rate limits, quota exhaustion, or timeouts.
func isCapacityErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 429, 503:
			return true
		}
	}

	// The genai SDK surfaces gRPC quota failures as wrapped strings, so
	// fall back to message sniffing
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "resource exhausted") ||
		strings.Contains(msg, "deadline exceeded") ||
		strings.Contains(msg, "unavailable") ||
		strings.Contains(msg, "overloaded")
}
