package tools

import (
	"fmt"

	"github.com/set-night/mindchat/internal/domain"
)

var kindPrompts = map[domain.ArtifactKind]string{
	domain.ArtifactText: "Write about the given topic. Markdown is supported. Use headings wherever appropriate.",
	domain.ArtifactCode: `You are a code generator that creates self-contained, executable code snippets.
Each snippet should be complete and runnable on its own, print its output,
include helpful comments and avoid external dependencies. Return only the code,
without markdown fences.`,
	domain.ArtifactSheet: "You are a spreadsheet creation assistant. Create a spreadsheet in csv format based on the given prompt. The spreadsheet should contain meaningful column headers and data. Return only the csv.",
}

func createPrompt(kind domain.ArtifactKind) string {
	return kindPrompts[kind]
}

func updatePrompt(doc *domain.Document) string {
	var what string
	switch doc.Kind {
	case domain.ArtifactCode:
		what = "Improve the following code snippet based on the given prompt. Return only the code."
	case domain.ArtifactSheet:
		what = "Improve the following spreadsheet based on the given prompt. Return only the csv."
	default:
		what = "Improve the following contents of the document based on the given prompt."
	}
	return fmt.Sprintf("%s\n\n%s", what, doc.Content)
}

const suggestionsPrompt = `You are a help writing assistant. Given a piece of writing, please offer
suggestions to improve the piece of writing and describe the change. It is very
important for the edits to contain full sentences instead of just words.
Max 5 suggestions.

Answer with a JSON array only, each item shaped as
{"originalSentence": "...", "suggestedSentence": "...", "description": "..."}.`
