package domain

// PreviewLength is the number of runes of passage content shown as a source preview
const PreviewLength = 200

// Answer is the generated reply to a question together with its evidence
type Answer struct {
	Text      string   `json:"answer"`
	Sources   []Source `json:"sources"`
	SessionID string   `json:"session_id,omitempty"`
}

// Source cites one retrieved passage
type Source struct {
	Page    int     `json:"page"`
	Preview string  `json:"content"`
	Score   float32 `json:"score"`
}

// Preview truncates content to PreviewLength runes, marking truncation with "..."
func Preview(content string) string {
	runes := []rune(content)
	if len(runes) <= PreviewLength {
		return content
	}
	return string(runes[:PreviewLength]) + "..."
}

// NewSource builds the citation for a passage
func NewSource(p Passage, score float32) Source {
	return Source{
		Page:    p.Page,
		Preview: Preview(p.Content),
		Score:   score,
	}
}
