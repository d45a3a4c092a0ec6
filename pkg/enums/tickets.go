package enums

import (
	"fmt"
	"strings"
)

// TicketStatus maps to the ticket_status enum in Postgres.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusClassified TicketStatus = "classified"
	TicketStatusAssigned   TicketStatus = "assigned"
	TicketStatusClosed     TicketStatus = "closed"
)

var validTicketStatuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusClassified,
	TicketStatusAssigned,
	TicketStatusClosed,
}

// IsValid reports whether the value matches the canonical ticket_status enum.
func (s TicketStatus) IsValid() bool {
	for _, candidate := range validTicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// TicketPriority maps to the ticket_priority enum in Postgres.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
	PriorityUrgent TicketPriority = "urgent"
)

var validTicketPriorities = []TicketPriority{
	PriorityLow,
	PriorityMedium,
	PriorityHigh,
	PriorityUrgent,
}

// IsValid reports whether the value matches the canonical ticket_priority enum.
func (p TicketPriority) IsValid() bool {
	for _, candidate := range validTicketPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseTicketPriority converts raw input, typically from the AI classifier,
// into a TicketPriority.
func ParseTicketPriority(value string) (TicketPriority, error) {
	normalized := TicketPriority(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid ticket priority %q", value)
}

// TicketCategory maps to the ticket_category enum in Postgres.
type TicketCategory string

const (
	CategoryBilling   TicketCategory = "billing"
	CategoryTechnical TicketCategory = "technical"
	CategoryAccount   TicketCategory = "account"
	CategoryOther     TicketCategory = "other"
)

var validTicketCategories = []TicketCategory{
	CategoryBilling,
	CategoryTechnical,
	CategoryAccount,
	CategoryOther,
}

// IsValid reports whether the value matches the canonical ticket_category enum.
func (c TicketCategory) IsValid() bool {
	for _, candidate := range validTicketCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseTicketCategory converts raw input, typically from the AI classifier,
// into a TicketCategory.
func ParseTicketCategory(value string) (TicketCategory, error) {
	normalized := TicketCategory(strings.ToLower(strings.TrimSpace(value)))
	if normalized.IsValid() {
		return normalized, nil
	}
	return "", fmt.Errorf("invalid ticket category %q", value)
}
