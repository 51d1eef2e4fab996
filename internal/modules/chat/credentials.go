package chat

import (
	"strings"

	types "github.com/yungbote/replygen-backend/internal/domain/chat"
	"github.com/yungbote/replygen-backend/internal/llm"
)

// resolveCredentials picks the key and endpoint for a run. An assistant's API
// service token and URL win over the user's stored key and the catalog default.
func resolveCredentials(user *types.User, a *types.Assistant, spec llm.BackendSpec) llm.Credentials {
	creds := llm.Credentials{
		APIKey:  user.KeyFor(spec.Driver),
		BaseURL: strings.TrimSpace(spec.BaseURL),
	}
	if a == nil || a.APIService == nil {
		return creds
	}
	if tok := strings.TrimSpace(a.APIService.Token); tok != "" {
		creds.APIKey = tok
	}
	if u := strings.TrimSpace(a.APIService.URL); u != "" {
		creds.BaseURL = u
	}
	return creds
}

func historyTurns(msgs []*types.Message) []llm.Turn {
	out := make([]llm.Turn, 0, len(msgs))
	for _, m := range msgs {
		text := strings.TrimSpace(m.ContentText)
		if text == "" {
			continue
		}
		role := llm.RoleUser
		if m.Role == types.RoleAssistant {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Turn{Role: role, Text: m.ContentText})
	}
	return out
}
