// Package intent classifies free-text questions into a fixed set of query
// intents. Classification is deterministic: an ordered regex pass first
// (precision), a keyword-scoring fallback second (recall). There is no model
// dependency and no learned state.
package intent

import (
	"regexp"
	"strings"

	"auditchat/pkg/domain"
)

// Confidence tuning. Pattern confidences cap at 0.99 so a confidence of 1.0
// can only come from the defaulted help path, which the router uses to mark
// fallback replies.
const (
	baseConfidence          = 0.85
	captureGroupBonus       = 0.03
	optionalTokenPenalty    = 0.02
	literalContainmentBonus = 0.10
	patternConfidenceCap    = 0.99

	keywordHitScore      = 0.20
	multiWordBonus       = 0.10
	coverageBonusCap     = 0.30
	keywordScoreCap      = 0.95
	LowConfidenceCutoff  = 0.30
	ClarificationCutoff  = 0.60
)

type pattern struct {
	re  *regexp.Regexp
	src string
}

func mustPatterns(sources ...string) []pattern {
	patterns := make([]pattern, 0, len(sources))
	for _, src := range sources {
		patterns = append(patterns, pattern{re: regexp.MustCompile(src), src: src})
	}
	return patterns
}

// intentPatterns is the primary classification table. Both the intent order
// and each pattern list's order are significant: the first pattern to match
// the lower-cased trimmed text wins and no further intents are examined.
var intentPatterns = []struct {
	intent   domain.Intent
	patterns []pattern
}{
	{domain.IntentEventByUser, mustPatterns(
		`^who (changed|modified|updated|edited|deleted|created|removed)\b`,
		`(which|what) (teammates?|users?|admins?) (changed|modified|edited|updated|deleted)`,
		`(changed|modified|edited|updated|deleted) (the )?(integrations?|policies|policy|workflows?|webhooks?|settings|roles?)`,
		`(policy|integration|webhook|workflow|role|permission|settings) (changes|edits|modifications|updates)`,
	)},
	{domain.IntentSecurityEvents, mustPatterns(
		`security (events?|activity|alerts?|issues?|changes|incidents?)`,
		`(show|list|any|recent|what) [a-z ]*security`,
		`(critical|sensitive|high.priority) (events?|actions?|changes)`,
	)},
	{domain.IntentUserActivity, mustPatterns(
		`what (has|did) ([a-z0-9_.@-]+) (been doing|been up to|do|done|did)`,
		`([a-z0-9_.@-]+)'s (activity|actions|events)`,
		`activity (by|for|of) ([a-z0-9_.@-]+)`,
		`actions (by|from) ([a-z0-9_.@-]+)`,
		`(show|list) (me )?(all )?(the )?(users|teammates|team activity|user activity)`,
		`who (is|was|has been) (active|around|working)`,
	)},
	{domain.IntentSuspiciousActivity, mustPatterns(
		`(suspicious|unusual|anomalous|strange|odd|weird) (activity|behaviour|behavior|events?|actions?)`,
		`(any|detect|find|spot|check for) (anomalies|anomaly|suspicious|unusual)`,
		`(after|out of).hours activity`,
		`service accounts? (activity|doing|actions)`,
	)},
	{domain.IntentTimeBased, mustPatterns(
		`what happened\b`,
		`(events?|activity|actions?|changes) (last night|overnight|over the weekend|yesterday|today)`,
		`(show|list|give me) [a-z0-9 ]*(last|past) [0-9]+ (minutes?|hours?|days?|weeks?)`,
		`(last night|overnight|over the weekend)\b`,
		`(summary|digest|recap) (of|for) (today|yesterday|the day|the week)`,
	)},
	{domain.IntentHelp, mustPatterns(
		`^(help|hi|hello|hey)\b`,
		`what can you (do|help with)`,
		`how (do|does) (you|this|it) work`,
		`(show|list) (me )?(the )?commands`,
	)},
}

// intentKeywords feeds the fallback scorer. Multi-word keywords earn a bonus
// because they are stronger evidence than single words.
var intentKeywords = map[domain.Intent][]string{
	domain.IntentEventByUser: {
		"who", "changed", "modified", "edited", "deleted", "made changes",
	},
	domain.IntentSecurityEvents: {
		"security", "permission", "login", "sso", "api key", "security events",
	},
	domain.IntentUserActivity: {
		"activity", "doing", "actions", "teammate", "user activity",
	},
	domain.IntentSuspiciousActivity: {
		"suspicious", "unusual", "anomaly", "anomalies", "weird", "after hours",
	},
	domain.IntentTimeBased: {
		"yesterday", "today", "happened", "weekend", "last night", "last week",
	},
	domain.IntentHelp: {
		"help", "how", "commands", "what can you",
	},
}

// Recognizer classifies messages. It is stateless and safe for concurrent
// use.
type Recognizer struct{}

// New constructs a Recognizer.
func New() *Recognizer {
	return &Recognizer{}
}

// Recognize classifies text into an intent with a heuristic confidence.
// Empty or whitespace-only input defaults to the help intent at full
// confidence.
func (r *Recognizer) Recognize(text string) domain.IntentResult {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return domain.IntentResult{Intent: domain.IntentHelp, Confidence: 1.0, Message: text}
	}

	// Primary pass: first pattern match wins outright.
	for _, entry := range intentPatterns {
		for _, p := range entry.patterns {
			if p.re.MatchString(normalized) {
				return domain.IntentResult{
					Intent:     entry.intent,
					Confidence: patternConfidence(p, normalized),
					Message:    text,
				}
			}
		}
	}

	// Fallback pass: crude keyword scoring, recall over precision.
	best, bestScore := domain.IntentHelp, 0.0
	for _, entry := range intentPatterns {
		if score := keywordScore(entry.intent, normalized); score > bestScore {
			best, bestScore = entry.intent, score
		}
	}
	if bestScore >= LowConfidenceCutoff {
		return domain.IntentResult{Intent: best, Confidence: bestScore, Message: text}
	}

	return domain.IntentResult{Intent: domain.IntentHelp, Confidence: 1.0, Message: text}
}

// patternConfidence estimates how specific a winning pattern is. More capture
// groups mean a more structured phrase; optional tokens loosen it; a pattern
// whose source literally contains the input is close to an exact match.
func patternConfidence(p pattern, text string) float64 {
	confidence := baseConfidence
	confidence += captureGroupBonus * float64(p.re.NumSubexp())
	confidence -= optionalTokenPenalty * float64(optionalTokens(p.src))
	if strings.Contains(p.src, text) {
		confidence += literalContainmentBonus
	}
	if confidence > patternConfidenceCap {
		confidence = patternConfidenceCap
	}
	return confidence
}

// optionalTokens counts '?' quantifiers in a pattern source, excluding the
// '(?' of group syntax.
func optionalTokens(src string) int {
	n := strings.Count(src, "?") - strings.Count(src, "(?")
	if n < 0 {
		return 0
	}
	return n
}

func keywordScore(intent domain.Intent, text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	score := 0.0
	matches := 0
	for _, keyword := range intentKeywords[intent] {
		if !strings.Contains(text, keyword) {
			continue
		}
		matches++
		score += keywordHitScore
		if strings.Contains(keyword, " ") {
			score += multiWordBonus
		}
	}
	if matches == 0 {
		return 0
	}

	coverage := float64(matches) / float64(len(words)) * 0.5
	if coverage > coverageBonusCap {
		coverage = coverageBonusCap
	}
	score += coverage

	if score > keywordScoreCap {
		score = keywordScoreCap
	}
	return score
}
