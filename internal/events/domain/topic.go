package domain

import "strings"

// MatchTopic reports whether topic matches a glob-style pattern. The only
// special character is '*', which matches any run of characters (including
// none and including dots). There is no case normalization.
func MatchTopic(topic, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return topic == pattern
	}
	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(topic, parts[0]) {
		return false
	}
	rest := topic[len(parts[0]):]
	for i := 1; i < len(parts)-1; i++ {
		idx := strings.Index(rest, parts[i])
		if idx < 0 {
			return false
		}
		rest = rest[idx+len(parts[i]):]
	}
	return strings.HasSuffix(rest, parts[len(parts)-1])
}

// TopicFilter is a broker's include/exclude pattern set. A topic is allowed
// when it matches at least one include pattern and no exclude pattern.
type TopicFilter struct {
	Include []string
	Exclude []string
}

// DefaultFilter allows every topic.
func DefaultFilter() TopicFilter {
	return TopicFilter{Include: []string{"*"}}
}

// Allows reports whether the filter lets the given topic through. A filter
// with no include patterns allows nothing; use DefaultFilter for match-all.
func (f TopicFilter) Allows(topic string) bool {
	matched := false
	for _, p := range f.Include {
		if MatchTopic(topic, p) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, p := range f.Exclude {
		if MatchTopic(topic, p) {
			return false
		}
	}
	return true
}
