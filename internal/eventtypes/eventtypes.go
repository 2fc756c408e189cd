// Package eventtypes is the single source of truth for audit event-type
// classification. The priority tiers, the security-critical list and the
// keyword-to-prefix table are data, not code: analyzers receive a *Tables and
// never carry their own copies.
package eventtypes

import "strings"

// Tables groups the event-type classification data consumed by the analyzers
// and the router.
type Tables struct {
	// HighPriority event types get the top tier in security summaries.
	HighPriority map[string]bool
	// MediumPriority event types get the middle tier; everything else is low.
	MediumPriority map[string]bool
	// SecurityCritical event types feed the anomaly detection rules.
	SecurityCritical map[string]bool
	// KeywordPrefixes maps free-text topic words to event-type prefixes for
	// client-side filtering ("policy" -> "org.policy").
	KeywordPrefixes map[string]string
	// RoutineCIPrefixes marks automation noise excluded from the
	// service-account anomaly rule.
	RoutineCIPrefixes []string
}

// Default returns the production classification tables.
func Default() *Tables {
	return &Tables{
		HighPriority: setOf(
			"org.settings.security.edit",
			"org.sso.edit",
			"org.policy.delete",
			"admin.role.edit",
			"admin.permission.edit",
			"api_key.create",
			"api_key.delete",
			"org.data_export.request",
			"admin.impersonation.start",
		),
		MediumPriority: setOf(
			"org.policy.edit",
			"org.policy.create",
			"app.integration.install",
			"app.integration.uninstall",
			"app.webhook.create",
			"app.webhook.delete",
			"org.teammate.invite",
			"org.teammate.remove",
			"admin.login.failed",
		),
		SecurityCritical: setOf(
			"org.settings.security.edit",
			"org.sso.edit",
			"org.policy.edit",
			"org.policy.delete",
			"admin.role.edit",
			"admin.permission.edit",
			"api_key.create",
			"api_key.delete",
			"org.teammate.invite",
			"org.teammate.remove",
			"org.data_export.request",
			"admin.impersonation.start",
			"admin.login.failed",
		),
		KeywordPrefixes: map[string]string{
			"policy":      "org.policy",
			"policies":    "org.policy",
			"integration": "app.integration",
			"webhook":     "app.webhook",
			"workflow":    "app.workflow",
			"teammate":    "org.teammate",
			"user":        "org.teammate",
			"invite":      "org.teammate.invite",
			"role":        "admin.role",
			"permission":  "admin.permission",
			"settings":    "org.settings",
			"security":    "org.settings.security",
			"sso":         "org.sso",
			"api key":     "api_key",
			"export":      "org.data_export",
			"login":       "admin.login",
		},
		RoutineCIPrefixes: []string{"ci.test.", "app.canary."},
	}
}

// IsHighPriority reports whether the event type is in the top tier.
func (t *Tables) IsHighPriority(eventType string) bool {
	return t.HighPriority[eventType]
}

// IsMediumPriority reports whether the event type is in the middle tier.
func (t *Tables) IsMediumPriority(eventType string) bool {
	return t.MediumPriority[eventType]
}

// IsSecurityCritical reports whether the event type feeds anomaly rules.
func (t *Tables) IsSecurityCritical(eventType string) bool {
	return t.SecurityCritical[eventType]
}

// IsRoutineCI reports whether the event type is automation noise.
func (t *Tables) IsRoutineCI(eventType string) bool {
	for _, prefix := range t.RoutineCIPrefixes {
		if strings.HasPrefix(eventType, prefix) {
			return true
		}
	}
	return false
}

// PrefixFor resolves a free-text topic phrase to an event-type prefix by
// fuzzy substring match in both directions. Returns "" when no keyword fits.
func (t *Tables) PrefixFor(phrase string) string {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return ""
	}
	if prefix, ok := t.KeywordPrefixes[phrase]; ok {
		return prefix
	}
	// Prefer the longest matching keyword so "security settings" resolves to
	// the security prefix, not the generic settings one. Ties break on the
	// keyword itself to keep resolution deterministic across map iteration.
	var bestKeyword, bestPrefix string
	for keyword, prefix := range t.KeywordPrefixes {
		if !strings.Contains(phrase, keyword) && !strings.Contains(keyword, phrase) {
			continue
		}
		if len(keyword) > len(bestKeyword) || (len(keyword) == len(bestKeyword) && keyword < bestKeyword) {
			bestKeyword, bestPrefix = keyword, prefix
		}
	}
	return bestPrefix
}

func setOf(values ...string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
