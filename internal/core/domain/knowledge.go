package domain

import (
	"strings"
	"time"
)

// KnowledgeStatus represents the lifecycle state of a knowledge item.
type KnowledgeStatus string

const (
	StatusPendingValidation KnowledgeStatus = "Pending Validation"
	StatusApproved          KnowledgeStatus = "Approved"
	StatusRejected          KnowledgeStatus = "Rejected"
	StatusRevisionRequested KnowledgeStatus = "Revision Requested"
)

// IsDecision reports whether s is one of the canonical validation outcomes.
func (s KnowledgeStatus) IsDecision() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusRevisionRequested:
		return true
	}
	return false
}

// KnowledgeItem is a unit of submitted content subject to validation.
type KnowledgeItem struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Author      string          `json:"author"`
	Role        Role            `json:"role"`
	Tags        []string        `json:"tags"`
	Project     string          `json:"project"`
	Region      string          `json:"region"`
	Type        string          `json:"type"`
	Status      KnowledgeStatus `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	ValidatedBy string          `json:"validatedBy,omitempty"`
	ValidatedAt *time.Time      `json:"validatedAt,omitempty"`
}

// Decided reports whether a validation decision has been recorded.
func (k KnowledgeItem) Decided() bool {
	return k.ValidatedAt != nil
}

// KnowledgePatch carries a validation decision. The three fields are
// written together or not at all.
type KnowledgePatch struct {
	Status      KnowledgeStatus
	ValidatedBy string
	ValidatedAt time.Time
	// OnlyIfUndecided makes the write conditional: an item that already
	// carries a decision is left untouched and the update fails with
	// ErrConflict.
	OnlyIfUndecided bool
}

// Apply writes the decision onto k.
func (p KnowledgePatch) Apply(k *KnowledgeItem) {
	at := p.ValidatedAt
	k.Status = p.Status
	k.ValidatedBy = p.ValidatedBy
	k.ValidatedAt = &at
}

// KnowledgeFilter narrows a knowledge listing. Zero value matches everything.
type KnowledgeFilter struct {
	Author string
	Status KnowledgeStatus
}

// Match reports whether k satisfies the filter.
func (f KnowledgeFilter) Match(k KnowledgeItem) bool {
	if f.Author != "" && k.Author != f.Author {
		return false
	}
	if f.Status != "" && k.Status != f.Status {
		return false
	}
	return true
}

// NormalizeTags trims every tag and drops the empty ones, keeping order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// SplitTags parses a comma-delimited tag string.
func SplitTags(raw string) []string {
	return NormalizeTags(strings.Split(raw, ","))
}

// CloneTags returns a copy safe to hand out of a store.
func CloneTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}
