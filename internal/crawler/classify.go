package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Content classification and quality scoring are expressed as ordered
// lists of named rules evaluated uniformly, so each rule stays
// independently unit-testable.

type classifyInput struct {
	url     string // lowercased
	title   string // lowercased
	content string // lowercased
	doc     *goquery.Document
}

type signal struct {
	name  string
	fires func(in classifyInput) bool
}

type classifyRule struct {
	contentType string
	threshold   int
	signals     []signal
}

// classifyRules is evaluated in order; the first rule whose signal count
// reaches its threshold wins.
var classifyRules = []classifyRule{
	{
		contentType: TypeNews,
		threshold:   2,
		signals: []signal{
			{"news-domain", func(in classifyInput) bool {
				return containsAny(in.url, "news", "bbc", "reuters", "guardian", "cnn")
			}},
			{"news-title", func(in classifyInput) bool {
				return containsAny(in.title, "news", "breaking", "report")
			}},
			{"datetime-element", func(in classifyInput) bool {
				return in.doc.Find("time").Length() > 0
			}},
			{"news-body", func(in classifyInput) bool {
				return containsAny(in.content, "published", "reporter", "breaking news")
			}},
		},
	},
	{
		contentType: TypeAcademic,
		threshold:   2,
		signals: []signal{
			{"edu-domain", func(in classifyInput) bool {
				return strings.Contains(in.url, ".edu")
			}},
			{"academic-title", func(in classifyInput) bool {
				return containsAny(in.title, "research", "study", "journal", "paper")
			}},
			{"academic-body", func(in classifyInput) bool {
				return containsAny(in.content, "abstract", "methodology", "conclusion", "references")
			}},
		},
	},
	{
		contentType: TypeReference,
		threshold:   2,
		signals: []signal{
			{"reference-domain", func(in classifyInput) bool {
				return containsAny(in.url, "wikipedia", "dictionary", "encyclopedia")
			}},
			{"reference-title", func(in classifyInput) bool {
				return containsAny(in.title, "definition", "meaning", "what is")
			}},
		},
	},
}

// classify assigns the first content type whose rule fires, else web.
func classify(in classifyInput) string {
	for _, rule := range classifyRules {
		fired := 0
		for _, sig := range rule.signals {
			if sig.fires(in) {
				fired++
			}
		}
		if fired >= rule.threshold {
			return rule.contentType
		}
	}
	return TypeWeb
}

type qualityInput struct {
	contentLen    int
	headings      int
	images        int
	externalLinks int
	hasStructure  bool
	hasMetaDesc   bool
	titleLen      int
	hasLang       bool
}

type qualityFeature struct {
	name    string
	weight  float64
	present func(in qualityInput) bool
}

// qualityFeatures is an additive heuristic over independent weighted
// features; the sum is capped at 1.0. Intentionally a transparent,
// testable sum rather than a learned model.
var qualityFeatures = []qualityFeature{
	{"content-length-ideal", 0.2, func(in qualityInput) bool {
		return in.contentLen >= 500 && in.contentLen <= 5000
	}},
	{"content-length-minimum", 0.1, func(in qualityInput) bool {
		return in.contentLen > 300 && (in.contentLen < 500 || in.contentLen > 5000)
	}},
	{"multiple-headings", 0.2, func(in qualityInput) bool {
		return in.headings >= 2
	}},
	{"single-heading", 0.1, func(in qualityInput) bool {
		return in.headings == 1
	}},
	{"has-image", 0.1, func(in qualityInput) bool {
		return in.images >= 1
	}},
	{"semantic-structure", 0.1, func(in qualityInput) bool {
		return in.hasStructure
	}},
	{"meta-description", 0.1, func(in qualityInput) bool {
		return in.hasMetaDesc
	}},
	{"external-references", 0.1, func(in qualityInput) bool {
		return in.externalLinks >= 3
	}},
	{"title-length", 0.1, func(in qualityInput) bool {
		return in.titleLen >= 10 && in.titleLen <= 100
	}},
	{"language-declared", 0.1, func(in qualityInput) bool {
		return in.hasLang
	}},
}

// qualityScore sums the weights of present features, clamped to [0,1].
func qualityScore(in qualityInput) float64 {
	score := 0.0
	for _, f := range qualityFeatures {
		if f.present(in) {
			score += f.weight
		}
	}
	if score > 1.0 {
		score = 1.0
	}
	if score < 0.0 {
		score = 0.0
	}
	return score
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
