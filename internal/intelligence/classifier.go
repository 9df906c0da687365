// Package intelligence classifies NOTAMs without a language model. The
// RuleClassifier fills the same role as the hosted oracle, so briefing packs
// can be annotated offline and pipelines can be tested deterministically.
package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-notam-briefing/internal/notam"
)

// Per-match confidence contributions
const (
	keywordConfidence = 0.1
	patternConfidence = 0.15
	qCodeConfidence   = 1.0
)

type compiledRule struct {
	ClassificationRule
	keywords []*regexp.Regexp
	patterns []*regexp.Regexp
}

// RuleClassifier performs rule-based notice classification
type RuleClassifier struct {
	config ClassificationConfig
	rules  []compiledRule
	now    func() time.Time
	logger *zap.Logger
}

// NewRuleClassifier creates a classifier with the default rules plus any
// custom rules named by config
func NewRuleClassifier(config ClassificationConfig, logger *zap.Logger) (*RuleClassifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.AgePad == 0 {
		config.AgePad = notam.PadZero
	}

	c := &RuleClassifier{
		config: config,
		now:    time.Now,
		logger: logger,
	}
	if err := c.addRules(getDefaultRules()); err != nil {
		return nil, err
	}

	// Load custom rules if specified
	if config.EnableCustomRules && config.CustomRulesPath != "" {
		if err := c.LoadCustomRules(config.CustomRulesPath); err != nil {
			logger.Warn("failed to load custom rules",
				zap.String("path", config.CustomRulesPath), zap.Error(err))
		}
	}

	return c, nil
}

// WithClock replaces the clock used to compute notice ages
func (c *RuleClassifier) WithClock(now func() time.Time) *RuleClassifier {
	c.now = now
	return c
}

// LoadCustomRules loads custom classification rules from a JSON file
func (c *RuleClassifier) LoadCustomRules(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read custom rules file: %w", err)
	}

	var ruleSet ClassificationRuleSet
	if err := json.Unmarshal(data, &ruleSet); err != nil {
		return fmt.Errorf("failed to parse custom rules: %w", err)
	}

	return c.addRules(ruleSet.Rules)
}

func (c *RuleClassifier) addRules(rules []ClassificationRule) error {
	prefix := "(?i)"
	if c.config.KeywordCaseSensitive {
		prefix = ""
	}

	for _, rule := range rules {
		if _, err := notam.ParseCategory(string(rule.Category)); err != nil {
			return fmt.Errorf("rule %s: %w", rule.Name, err)
		}

		cr := compiledRule{ClassificationRule: rule}
		for _, kw := range rule.Keywords {
			cr.keywords = append(cr.keywords, regexp.MustCompile(prefix+`\b`+regexp.QuoteMeta(kw)+`\b`))
		}
		for _, p := range rule.KeywordPatterns {
			re, err := regexp.Compile(prefix + p)
			if err != nil {
				return fmt.Errorf("rule %s: invalid pattern %q: %w", rule.Name, p, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
		c.rules = append(c.rules, cr)
	}
	return nil
}

// Classify cuts text into notices and returns a tag for each identifier.
// Its signature matches the hosted oracle's so either can back a pipeline.
func (c *RuleClassifier) Classify(ctx context.Context, text string) (notam.TagMap, error) {
	results, err := c.ClassifyNotices(ctx, SplitNotices(text))
	if err != nil {
		return nil, err
	}

	tags := make(notam.TagMap, len(results))
	for _, r := range results {
		tags[r.ID] = r.Tag
	}
	return tags, nil
}

// ClassifyNotices classifies every notice, in order
func (c *RuleClassifier) ClassifyNotices(ctx context.Context, notices []Notice) ([]NoticeClassification, error) {
	out := make([]NoticeClassification, 0, len(notices))
	for _, n := range notices {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		nc := c.ClassifyNotice(n)
		c.logger.Debug("classified notice",
			zap.String("id", nc.ID),
			zap.String("category", string(nc.Category)),
			zap.Float64("confidence", nc.Confidence))
		out = append(out, nc)
	}
	return out, nil
}

// ClassifyNotice picks the best scoring category for one notice
func (c *RuleClassifier) ClassifyNotice(n Notice) NoticeClassification {
	category, confidence, reasons := c.categorize(n)
	age := c.Age(n)
	return NoticeClassification{
		ID:         n.ID,
		Category:   category,
		Age:        age,
		Tag:        notam.FormatTag(category, age),
		Confidence: confidence,
		Reasons:    reasons,
	}
}

// Age renders the notice's age in days as a tag field
func (c *RuleClassifier) Age(n Notice) string {
	if !n.HasStart() {
		return notam.UnknownAge
	}
	return notam.FormatAge(AgeDays(n.Start, c.now().UTC()), c.config.AgePad)
}

func (c *RuleClassifier) categorize(n Notice) (notam.Category, float64, []ClassificationReason) {
	if n.Kind == NoticeKindCancel {
		return notam.CategoryIrrelevant, 1.0, []ClassificationReason{{
			Rule:       "cancellation",
			Category:   "kind",
			Evidence:   "NOTAMC cancels an earlier notice",
			Confidence: 1.0,
			Weight:     1.0,
		}}
	}

	scores := make(map[notam.Category]float64)
	reasons := make(map[notam.Category][]ClassificationReason)

	for _, rule := range c.rules {
		if !rule.Enabled {
			continue
		}
		confidence, ruleReasons := c.evaluateRule(rule, n)
		if confidence >= rule.MinConfidence && confidence > 0 {
			scores[rule.Category] += confidence * rule.Weight
			reasons[rule.Category] = append(reasons[rule.Category], ruleReasons...)
		}
	}

	// Categories() is in priority order, so ties go to the earlier category
	best, bestScore := notam.CategoryIrrelevant, 0.0
	for _, cat := range notam.Categories() {
		if scores[cat] > bestScore {
			best, bestScore = cat, scores[cat]
		}
	}

	if bestScore < c.config.MinConfidenceThreshold {
		return notam.CategoryIrrelevant, 0, []ClassificationReason{{
			Rule:     "default",
			Category: "fallback",
			Evidence: "No strong classification signals found",
			Weight:   1.0,
		}}
	}
	return best, min(bestScore, 1.0), reasons[best]
}

// evaluateRule evaluates a single classification rule against the notice
func (c *RuleClassifier) evaluateRule(rule compiledRule, n Notice) (float64, []ClassificationReason) {
	var confidence float64
	var reasons []ClassificationReason

	for _, prefix := range rule.QCodePrefixes {
		if n.QCode != "" && strings.HasPrefix(n.QCode, prefix) {
			confidence += qCodeConfidence
			reasons = append(reasons, ClassificationReason{
				Rule:       rule.Name,
				Category:   "qcode",
				Evidence:   fmt.Sprintf("Q code %s matches %s", n.QCode, prefix),
				Confidence: qCodeConfidence,
				Weight:     rule.Weight,
			})
			break
		}
	}

	for i, re := range rule.keywords {
		count := len(re.FindAllStringIndex(n.Body, -1))
		if count == 0 {
			continue
		}
		confidence += keywordConfidence * float64(count)
		reasons = append(reasons, ClassificationReason{
			Rule:       rule.Name,
			Category:   "keyword",
			Evidence:   fmt.Sprintf("Found keyword '%s' %d times", rule.Keywords[i], count),
			Confidence: keywordConfidence * float64(count),
			Weight:     rule.Weight,
		})
	}

	for i, re := range rule.patterns {
		count := len(re.FindAllStringIndex(n.Body, -1))
		if count == 0 {
			continue
		}
		confidence += patternConfidence * float64(count)
		reasons = append(reasons, ClassificationReason{
			Rule:       rule.Name,
			Category:   "pattern",
			Evidence:   fmt.Sprintf("Pattern '%s' matched %d times", rule.KeywordPatterns[i], count),
			Confidence: patternConfidence * float64(count),
			Weight:     rule.Weight,
		})
	}

	return confidence, reasons
}
