package service

import (
	"fmt"
	"strings"
)

const (
	replyFarewell      = "Goodbye! Have a great day!"
	replyClarify       = "I'm not quite sure about that. Can you clarify?"
	replyNotHeard      = "I didn't catch that, could you repeat?"
	replyNoStaff       = "I'm sorry, there is nobody available for meetings right now."
	replyBookingFailed = "I'm sorry, I couldn't complete that booking right now. Please try again in a moment."
)

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func greetingReply(storeName string) string {
	return fmt.Sprintf("Welcome to %s! How may I assist you today?", storeName)
}

func staffPromptReply(names []string) string {
	return fmt.Sprintf("Available staff members are: %s. Please specify who you'd like to meet with and your preferred time.", joinOrNone(names))
}

func unknownStaffReply(names []string) string {
	return fmt.Sprintf("I couldn't find that staff member. Available staff are: %s. Please try again.", joinOrNone(names))
}

func staffFoundReply(name string, open []string) string {
	return fmt.Sprintf("I found %s. Their available times are: %s. Please specify your preferred time.", name, joinOrNone(open))
}

func staffFullyBookedReply(name string, names []string) string {
	return fmt.Sprintf("I found %s, but they have no open times left. Available staff are: %s. Who else would you like to meet with?", name, joinOrNone(names))
}

func timeNotUnderstoodReply(name string, open []string) string {
	return fmt.Sprintf("I didn't understand that time. Available times for %s are: %s. Please specify your preferred time.", name, joinOrNone(open))
}

func slotUnavailableReply(name string, open []string) string {
	return fmt.Sprintf("I couldn't match that time. Available times for %s are: %s. Please specify your preferred time.", name, joinOrNone(open))
}

func slotTakenReply(name, slot string, open []string) string {
	return fmt.Sprintf("Sorry, %s is already booked at %s. Available times for %s are: %s. Please specify your preferred time.", name, slot, name, joinOrNone(open))
}

func bookedReply(name, slot string) string {
	return fmt.Sprintf("Great! I've scheduled your meeting with %s at %s.", name, slot)
}
