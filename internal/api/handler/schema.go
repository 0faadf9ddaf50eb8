package handler

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Accounts ---

type signupRequest struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	Region        string `json:"region"`
	RequestedRole string `json:"requestedRole"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// accountDecisionRequest carries the caller's asserted role in trust mode.
type accountDecisionRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type accountResponse struct {
	Message string               `json:"message"`
	User    domain.SanitizedUser `json:"user"`
}

// --- Knowledge ---

// tagList accepts either a JSON array of strings or one comma-delimited
// string.
type tagList struct {
	Items []string
	Text  string
}

func (t *tagList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		return nil
	case len(data) > 0 && data[0] == '"':
		return json.Unmarshal(data, &t.Text)
	case len(data) > 0 && data[0] == '[':
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		for _, v := range raw {
			if v == nil {
				continue
			}
			t.Items = append(t.Items, fmt.Sprint(v))
		}
		return nil
	default:
		return fmt.Errorf("tags must be an array or a comma-separated string")
	}
}

type submitKnowledgeRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Author      string  `json:"author"`
	Role        string  `json:"role"`
	Tags        tagList `json:"tags" swaggertype:"array,string"`
	Project     string  `json:"project"`
	Region      string  `json:"region"`
	Type        string  `json:"type"`
}

type decideRequest struct {
	Role      string `json:"role"`
	Validator string `json:"validator"`
	Decision  string `json:"decision" example:"Approved"`
}

type knowledgeResponse struct {
	Message string               `json:"message"`
	Item    domain.KnowledgeItem `json:"item"`
}

// --- Leaderboard ---

type leaderboardQuery struct {
	Region    string `query:"region"`
	Project   string `query:"project"`
	Timeframe string `query:"timeframe" validate:"omitempty,oneof=month all"`
	Search    string `query:"search"`
}
