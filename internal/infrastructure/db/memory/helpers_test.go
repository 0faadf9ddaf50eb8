package memory

import (
	"time"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

func storetestItem() domain.KnowledgeItem {
	return domain.KnowledgeItem{
		Title:       "Runbook",
		Description: "x",
		Author:      "u1",
		Role:        domain.RoleConsultant,
		Tags:        []string{"ops"},
		Status:      domain.StatusPendingValidation,
		CreatedAt:   time.Now().UTC(),
	}
}
