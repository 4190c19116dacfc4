package lifecycle

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/lepusmq/lepusmon/internal/alerting/model"
)

// Key derives the deterministic alert identity from the condition's
// coordinates. The same condition observed across poll cycles always
// maps to the same key; reconciliation and notification dedup depend on
// this being stable. The metric family is part of the tuple so that two
// families sharing a category and source (queue depth vs unacked
// backlog on one queue) stay distinct alerts.
func Key(serverID string, category model.Category, metric string, source model.AlertSource, vhost string) string {
	canonical := strings.Join([]string{
		"server=" + serverID,
		"category=" + string(category),
		"metric=" + metric,
		"type=" + string(source.Type),
		"name=" + source.Name,
		"vhost=" + vhost,
	}, "\n")
	digest := sha1.Sum([]byte(canonical))
	var b strings.Builder
	b.Grow(len("alert/") + len(serverID) + len(category) + sha1.Size*2 + 2)
	b.WriteString("alert/")
	b.WriteString(sanitize(serverID))
	b.WriteByte('/')
	b.WriteString(string(category))
	b.WriteByte('/')
	b.WriteString(hex.EncodeToString(digest[:]))
	return b.String()
}

// CandidateKey derives the identity key for a classifier candidate.
func CandidateKey(serverID string, c model.CandidateAlert) string {
	return Key(serverID, c.Category, c.Metric, c.Source, c.VHost)
}

// sanitize converts key path fragments into stable token form.
func sanitize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "_"
	}
	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + 32)
		case r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
