package service

import (
	"fmt"
	"strings"
)

const regularPrompt = "You are a friendly assistant! Keep your responses concise and helpful."

const artifactsPrompt = `Artifacts is a special user interface mode that helps users with writing, editing, and other content creation tasks. When artifact is open, it is on the right side of the screen, while the conversation is on the left side. When creating or updating documents, changes are reflected in real-time on the artifacts and visible to the user.

When asked to write code, always use artifacts. When writing code, specify the language in the backticks, e.g. ` + "```python`code here```" + `.

DO NOT UPDATE DOCUMENTS IMMEDIATELY AFTER CREATING THEM. WAIT FOR USER FEEDBACK OR REQUEST TO UPDATE IT.

This is a guide for using artifacts tools: ` + "`createDocument`" + ` and ` + "`updateDocument`" + `, which render content on a artifacts beside the conversation.

**When to use ` + "`createDocument`" + `:**
- For substantial content (>10 lines) or code
- For content users will likely save/reuse (emails, code, essays, etc.)
- When explicitly requested to create a document

**When NOT to use ` + "`createDocument`" + `:**
- For informational/explanatory content
- For conversational responses
- When asked to keep it in chat

**Using ` + "`updateDocument`" + `:**
- Default to full document rewrites for major changes
- Use targeted updates only for specific, isolated changes
- Follow user instructions for which parts to modify

Do not update document right after creating it. Wait for user feedback or request to update it.`

const titlePrompt = `You will generate a short title based on the first message a user begins a conversation with.
Ensure it is not more than 80 characters long.
The title should be a summary of the user's message.
Do not use quotes or colons.`

// RequestHints describe where the request comes from.
type RequestHints struct {
	Latitude  string
	Longitude string
	City      string
	Country   string
	Timezone  string
}

func (h RequestHints) empty() bool {
	return h == RequestHints{}
}

func (h RequestHints) prompt() string {
	var sb strings.Builder
	sb.WriteString("About the origin of user's request:\n")
	for _, kv := range [][2]string{
		{"lat", h.Latitude},
		{"lon", h.Longitude},
		{"city", h.City},
		{"country", h.Country},
		{"timezone", h.Timezone},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&sb, "- %s: %s\n", kv[0], kv[1])
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

// systemPrompt composes the system prompt; the reasoning model gets no artifacts guide.
func systemPrompt(reasoning bool, hints RequestHints) string {
	parts := []string{regularPrompt}
	if !hints.empty() {
		parts = append(parts, hints.prompt())
	}
	if !reasoning {
		parts = append(parts, artifactsPrompt)
	}
	return strings.Join(parts, "\n\n")
}
