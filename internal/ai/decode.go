package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Analysis is the structured summary the reasoning service returns for one
// captured term.
type Analysis struct {
	Word         string      `json:"word"`
	Category     string      `json:"category"`
	Summary      string      `json:"summary"`
	Analogy      string      `json:"analogy"`
	KeyPlayers   []KeyPlayer `json:"key_players"`
	RelatedTerms []string    `json:"related_terms"`
}

// KeyPlayer tolerates both shapes the model produces: a bare name string or
// a {name, role} object.
type KeyPlayer struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

func (p *KeyPlayer) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		p.Name = name
		p.Role = ""
		return nil
	}
	var obj struct {
		Name string `json:"name"`
		Role string `json:"role"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	p.Name = obj.Name
	p.Role = obj.Role
	return nil
}

// StripFences removes surrounding markdown code-fence markup, which the
// service wraps JSON in despite being asked not to.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Language tag on the opening fence, e.g. ```json
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		first := strings.TrimSpace(s[:i])
		if first == "" || !strings.ContainsAny(first, "{[\"") {
			s = s[i+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// DecodeAnalysis parses a fenced-or-plain JSON analysis. A failure here is a
// real failure: a malformed analysis cannot be defaulted, so the caller
// aborts the capture.
func DecodeAnalysis(text string) (Analysis, error) {
	var analysis Analysis
	if err := json.Unmarshal([]byte(StripFences(text)), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	if strings.TrimSpace(analysis.Summary) == "" {
		return Analysis{}, fmt.Errorf("decode analysis: missing summary")
	}
	return analysis, nil
}

// DecodeNameList parses a fenced-or-plain JSON array of strings. Callers
// treat an error as "no names", never as a fatal condition.
func DecodeNameList(text string) ([]string, error) {
	var names []string
	if err := json.Unmarshal([]byte(StripFences(text)), &names); err != nil {
		return nil, fmt.Errorf("decode name list: %w", err)
	}
	return names, nil
}
