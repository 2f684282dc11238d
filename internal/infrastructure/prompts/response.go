package prompts

import (
	"errors"
	"strings"
)

var ErrNoJSON = errors.New("no JSON object found in response")

// ExtractJSON returns the text from the first '{' to the last '}' of a model
// reply, which drops prose and markdown fences around the object.
func ExtractJSON(response string) (string, error) {
	response = strings.TrimSpace(response)

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end < start {
		return "", ErrNoJSON
	}

	return response[start : end+1], nil
}

// StripFences removes a surrounding ```lang fence if the reply has one.
func StripFences(response string) string {
	s := strings.TrimSpace(response)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		return ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
