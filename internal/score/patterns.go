package score

import "regexp"

// Ordered: the first pattern with a match decides the score.
var scorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)score[:\s]*(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(\d+(?:\.\d+)?)\s*/\s*\d+`),
	regexp.MustCompile(`(?i)awarded[:\s]*(\d+(?:\.\d+)?)`),
	regexp.MustCompile(`(?i)total[:\s]*(\d+(?:\.\d+)?)`),
}

// Matched against user prompt templates, first match wins.
var maxHintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\((\d+)\s*points?\)`),
	regexp.MustCompile(`(?i)(\d+)\s*points?\s*total`),
	regexp.MustCompile(`(?i)Assessment Focus:.*?\((\d+)\s*points?\)`),
	regexp.MustCompile(`(?i)(\d+)\s*points?\)`),
}

// Matched against model responses, last match wins.
var maxInferPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*points?`),
	regexp.MustCompile(`(?i)\((\d+)\s*pts?\)`),
	regexp.MustCompile(`\d+\s*/\s*(\d+)`),
	regexp.MustCompile(`(?i)out of (\d+)`),
	regexp.MustCompile(`(?i)maximum.*?(\d+)`),
}
