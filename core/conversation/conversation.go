// Package conversation reads and writes the ConversationDocument format: a
// fenced XML block holding a conversation id and its ordered messages.
package conversation

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/leofalp/caret/internal/utils"
	"github.com/leofalp/caret/providers/ai"
)

// ErrMalformed is returned when a document cannot be parsed.
var ErrMalformed = errors.New("conversation: malformed document")

// Document is a persisted conversation.
type Document struct {
	ID       string
	Messages []ai.Message
}

// NewID returns a fresh conversation id.
func NewID() string {
	return uuid.NewString()
}

type xmlRoot struct {
	XMLName  xml.Name `xml:"root"`
	ID       string   `xml:"metadata>id"`
	Messages []struct {
		Role    string `xml:"role"`
		Content string `xml:"content"`
	} `xml:"conversation>message"`
}

// Marshal renders doc as a fenced xml block.
func Marshal(doc Document) string {
	var b strings.Builder
	b.WriteString("```xml\n<root>\n")
	fmt.Fprintf(&b, "  <metadata><id>%s</id></metadata>\n", utils.EscapeXML(doc.ID))
	b.WriteString("  <conversation>\n")
	for _, message := range doc.Messages {
		fmt.Fprintf(&b, "    <message><role>%s</role><content>%s</content></message>\n",
			utils.EscapeXML(string(message.Role)), utils.EscapeXML(message.Content))
	}
	b.WriteString("  </conversation>\n</root>\n```\n")
	return b.String()
}

// Unmarshal parses a document produced by Marshal. Text around the fenced
// block is ignored.
func Unmarshal(text string) (Document, error) {
	var root xmlRoot
	if err := xml.Unmarshal([]byte(utils.FencedBlock(text, "xml")), &root); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	doc := Document{ID: strings.TrimSpace(root.ID)}
	if doc.ID == "" {
		return Document{}, fmt.Errorf("%w: missing id", ErrMalformed)
	}

	for i, message := range root.Messages {
		role := ai.MessageRole(strings.TrimSpace(message.Role))
		if !role.Valid() {
			return Document{}, fmt.Errorf("%w: message %d has role %q", ErrMalformed, i, message.Role)
		}
		doc.Messages = append(doc.Messages, ai.Message{Role: role, Content: message.Content})
	}

	return doc, nil
}
