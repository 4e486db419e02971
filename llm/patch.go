// server/llm/patch.go
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mindmaps/server/domain"
)

// PatchProposal carries an RFC 6902 patch against the map document. The
// server never applies it; the frontend does, after user approval.
type PatchProposal struct {
	Patch   []map[string]any `json:"patch"`
	Summary string           `json:"summary"`
}

type PatchProposer struct {
	client Completer
	log    zerolog.Logger
}

func NewPatchProposer(client Completer, log zerolog.Logger) *PatchProposer {
	return &PatchProposer{client: client, log: log}
}

const patchPrompt = `You edit a mind map JSON document via RFC 6902 JSON Patch.
The document:

%s

Instruction: %s

Respond with ONLY a JSON object:
{"patch": [{"op":"replace","path":"/nodes/0/title","value":"..."}], "summary": "one sentence"}`

// Propose asks for a patch and shape-checks each entry: string "op" and
// "path" fields are required, anything else is dropped. Patch semantics are
// not validated here.
func (p *PatchProposer) Propose(ctx context.Context, instruction string, m *domain.MindMap) *PatchProposal {
	empty := &PatchProposal{Patch: []map[string]any{}, Summary: fallbackSummary}
	if p.client == nil {
		return empty
	}

	doc, err := json.Marshal(m)
	if err != nil {
		p.log.Warn().Err(err).Msg("map failed to marshal for patch prompt")
		return empty
	}

	raw, err := p.client.Complete(ctx, fmt.Sprintf(patchPrompt, doc, instruction))
	if err != nil {
		p.log.Warn().Err(err).Msg("patch completion failed")
		return empty
	}

	payload := extractJSON(raw)
	if payload == "" {
		p.log.Warn().Msg("patch response contained no JSON")
		return empty
	}

	var parsed PatchProposal
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		p.log.Warn().Err(err).Msg("patch response failed to parse")
		return empty
	}

	entries := make([]map[string]any, 0, len(parsed.Patch))
	for _, entry := range parsed.Patch {
		op, _ := entry["op"].(string)
		path, _ := entry["path"].(string)
		if op == "" || path == "" {
			p.log.Warn().Interface("entry", entry).Msg("dropping malformed patch entry")
			continue
		}
		entries = append(entries, entry)
	}

	summary := truncate(strings.TrimSpace(parsed.Summary), maxSummaryLen)
	if summary == "" {
		summary = fallbackSummary
	}
	return &PatchProposal{Patch: entries, Summary: summary}
}
