package dialogue

import (
	"fmt"
	"strings"

	"github.com/courtside-ai/frontdesk/internal/memory"
	"github.com/courtside-ai/frontdesk/internal/session"
)

const greetingText = "Thanks for calling Courtside Sports Center! " +
	"I can help with pricing, availability, and bookings. What can I do for you?"

// greetingFor personalizes the opening line for returning callers.
func greetingFor(profile *memory.Profile) string {
	if profile == nil || profile.Preferences.TotalBookings == 0 {
		return greetingText
	}
	service := strings.ReplaceAll(profile.Preferences.FavoriteService, "_", " ")
	if service == "" {
		return "Welcome back to Courtside Sports Center! What can I do for you today?"
	}
	return fmt.Sprintf(
		"Welcome back to Courtside Sports Center! Another %s session, or something different today?",
		service)
}

// clarificationPrompt varies by attempt: first a narrow choice, then a
// simpler reframe, finally an offer to transfer.
func clarificationPrompt(attempt int) string {
	switch attempt {
	case 1:
		return "I can help with pricing, checking availability, or making a booking. Which one would you like?"
	case 2:
		return "Sorry, I didn't quite catch that. Are you looking to book a court, or do you have a question about prices or times?"
	default:
		return "I'm having trouble understanding. You can try once more, or say 'transfer' and I'll connect you with our staff."
	}
}

func escalationMessage(reason session.EscalationReason) string {
	switch reason {
	case session.ReasonFrustration:
		return "I'm sorry for the trouble. Let me connect you with our staff right away. Please hold."
	case session.ReasonExplicitRequest:
		return "Of course, let me connect you with our staff. Please hold while I transfer your call."
	case session.ReasonFulfillmentFailure:
		return "I apologize, I'm having a technical issue with that request. Let me connect you with our staff who can finish it for you. Please hold."
	case session.ReasonLowConfidence:
		return "Let me get you to someone who can help directly. Please hold while I connect you with our staff."
	default:
		return "Let me connect you with our staff. Please hold."
	}
}

const goodbyeText = "Thanks for calling Courtside Sports Center. Have a great day!"

const generalInfoText = "We're at 42 Riverside Drive, open 9 AM to 9 PM every day. " +
	"We offer basketball courts, multi-sport rentals, and birthday party packages. " +
	"Anything else I can help with?"

const followUpSuffix = " Is there anything else I can help with?"

const slotPromptText = "Sure — what day and time are you thinking of?"
