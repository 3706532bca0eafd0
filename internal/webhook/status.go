package webhook

import (
	"strings"

	"github.com/cedcast/dispatch/internal/database"
)

// MapProviderStatus translates a provider delivery status into an internal
// recipient status. Unknown statuses map to the empty string: the raw value
// is still recorded but the recipient's state does not change.
func MapProviderStatus(providerStatus string) string {
	s := strings.ToLower(strings.TrimSpace(providerStatus))
	switch s {
	case "delivered", "delivered_to_terminal", "2":
		return database.RecipientStatusSent
	case "failed", "undelivered", "3":
		return database.RecipientStatusFailed
	}
	// Failure substrings first: "undeliverable" also contains "deliv".
	if strings.Contains(s, "fail") || strings.Contains(s, "undeliver") {
		return database.RecipientStatusFailed
	}
	if strings.Contains(s, "deliv") {
		return database.RecipientStatusSent
	}
	return ""
}
