package responder

import "github.com/comigor/bad-employee-go/internal/llm"

// extractor pulls reply text out of one response shape.
type extractor func(*llm.Response) (string, bool)

// extractors are tried in order; the first populated shape wins.
// Supporting a new shape means appending one function here.
var extractors = []extractor{
	fromParts,
	fromCandidates,
	fromText,
}

func fromParts(r *llm.Response) (string, bool) {
	if len(r.Parts) == 0 || r.Parts[0].Text == "" {
		return "", false
	}
	return r.Parts[0].Text, true
}

func fromCandidates(r *llm.Response) (string, bool) {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == "" {
		return "", false
	}
	return r.Candidates[0].Content, true
}

func fromText(r *llm.Response) (string, bool) {
	return r.Text, r.Text != ""
}

func extract(r *llm.Response) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, fn := range extractors {
		if text, ok := fn(r); ok {
			return text, true
		}
	}
	return "", false
}
