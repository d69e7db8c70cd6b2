package workflow

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leofalp/caret/internal/config"
	"github.com/leofalp/caret/internal/utils"
)

// Kind selects how steps run.
type Kind string

const (
	KindLinear   Kind = "linear"
	KindParallel Kind = "parallel"
)

const maxDelay = 60 * time.Second

// Step is one pre-authored prompt.
type Step struct {
	Prompt      string
	Model       string // model id or "default"
	Provider    string // provider id or "default"
	Delay       time.Duration
	Temperature *float64 // nil means default
}

// Document is a parsed WorkflowDocument.
type Document struct {
	Kind         Kind
	SystemPrompt string
	Steps        []Step
}

// Override turns the step's settings into a per-dispatch override carrying
// the document's system prompt.
func (s Step) Override(systemPrompt string) config.SparkleConfig {
	return config.SparkleConfig{
		Provider:     s.Provider,
		Model:        s.Model,
		Temperature:  s.Temperature,
		SystemPrompt: systemPrompt,
	}
}

type frontmatter struct {
	CaretPrompt string `yaml:"caret_prompt"`
}

type xmlPrompt struct {
	Model       string `xml:"model,attr"`
	Provider    string `xml:"provider,attr"`
	Delay       string `xml:"delay,attr"`
	Temperature string `xml:"temperature,attr"`
	Text        string `xml:",chardata"`
}

type xmlRoot struct {
	XMLName      xml.Name    `xml:"root"`
	SystemPrompt string      `xml:"system_prompt"`
	Prompts      []xmlPrompt `xml:"prompt"`
}

// splitFrontmatter separates a leading YAML block delimited by --- lines.
func splitFrontmatter(text string) (string, string, bool) {
	trimmed := strings.TrimLeft(text, "\ufeff \t\r\n")
	if !strings.HasPrefix(trimmed, "---") {
		return "", text, false
	}
	rest := strings.TrimLeft(trimmed[3:], " \t")
	rest = strings.TrimPrefix(strings.TrimPrefix(rest, "\r"), "\n")

	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", text, false
	}
	body := rest[end+4:]
	if newline := strings.IndexByte(body, '\n'); newline >= 0 {
		body = body[newline+1:]
	} else {
		body = ""
	}
	return rest[:end], body, true
}

func readKind(text string) (Kind, string, error) {
	header, body, ok := splitFrontmatter(text)
	if !ok {
		return "", text, &ValidationError{Field: "caret_prompt", Step: -1, Reason: "missing frontmatter"}
	}

	var meta frontmatter
	if err := yaml.Unmarshal([]byte(header), &meta); err != nil {
		return "", body, &ValidationError{Field: "frontmatter", Step: -1, Reason: err.Error()}
	}
	return Kind(strings.ToLower(strings.TrimSpace(meta.CaretPrompt))), body, nil
}

// IsDocument reports whether text carries the workflow marker, whatever
// its kind. Used to keep workflow files out of ambient context.
func IsDocument(text string) bool {
	kind, _, err := readKind(text)
	return err == nil && kind != ""
}

// Parse reads and validates a document. Any error unwraps to ErrMalformed.
func Parse(text string) (Document, error) {
	kind, body, err := readKind(text)
	if err != nil {
		return Document{}, err
	}
	if kind != KindLinear && kind != KindParallel {
		return Document{}, &ValidationError{Field: "caret_prompt", Step: -1, Reason: fmt.Sprintf("unknown kind %q", kind)}
	}

	var root xmlRoot
	if err := xml.Unmarshal([]byte(utils.FencedBlock(body, "xml")), &root); err != nil {
		return Document{}, &ValidationError{Field: "root", Step: -1, Reason: err.Error()}
	}

	doc := Document{Kind: kind, SystemPrompt: root.SystemPrompt}
	for i, prompt := range root.Prompts {
		step, err := parseStep(i, prompt)
		if err != nil {
			return Document{}, err
		}
		doc.Steps = append(doc.Steps, step)
	}

	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func parseStep(index int, prompt xmlPrompt) (Step, error) {
	step := Step{
		Prompt:   prompt.Text,
		Model:    orDefault(prompt.Model),
		Provider: orDefault(prompt.Provider),
	}

	if value := strings.TrimSpace(prompt.Delay); value != "" {
		seconds, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Step{}, &ValidationError{Field: "delay", Step: index, Reason: fmt.Sprintf("%q is not a number", value)}
		}
		// NaN and huge values do not convert to a Duration reliably.
		if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 || seconds > maxDelay.Seconds() {
			return Step{}, &ValidationError{Field: "delay", Step: index, Reason: fmt.Sprintf("%q outside [0, 60] seconds", value)}
		}
		step.Delay = time.Duration(seconds * float64(time.Second))
	}

	temperature, err := config.ParseTemperature(prompt.Temperature)
	if err != nil {
		return Step{}, &ValidationError{Field: "temperature", Step: index, Reason: err.Error()}
	}
	step.Temperature = temperature

	return step, nil
}

func orDefault(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return config.Default
	}
	return value
}

// Validate checks the invariants Parse enforces, for documents built in code.
func (d Document) Validate() error {
	if d.Kind != KindLinear && d.Kind != KindParallel {
		return &ValidationError{Field: "caret_prompt", Step: -1, Reason: fmt.Sprintf("unknown kind %q", d.Kind)}
	}
	if len(d.Steps) == 0 {
		return &ValidationError{Field: "prompt", Step: -1, Reason: "no prompts"}
	}
	for i, step := range d.Steps {
		if strings.TrimSpace(step.Prompt) == "" {
			return &ValidationError{Field: "prompt", Step: i, Reason: "empty"}
		}
		if step.Delay < 0 || step.Delay > maxDelay {
			return &ValidationError{Field: "delay", Step: i, Reason: fmt.Sprintf("%v outside [0s, 60s]", step.Delay)}
		}
		if step.Temperature != nil && (*step.Temperature < 0 || *step.Temperature > 2) {
			return &ValidationError{Field: "temperature", Step: i, Reason: fmt.Sprintf("%v outside [0, 2]", *step.Temperature)}
		}
	}
	return nil
}

// Marshal renders d in the format Parse reads.
func Marshal(d Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "---\ncaret_prompt: %s\n---\n```xml\n<root>\n", d.Kind)
	fmt.Fprintf(&b, "  <system_prompt>%s</system_prompt>\n", utils.EscapeXML(d.SystemPrompt))

	for _, step := range d.Steps {
		temperature := config.Default
		if step.Temperature != nil {
			temperature = strconv.FormatFloat(*step.Temperature, 'f', -1, 64)
		}
		fmt.Fprintf(&b, "  <prompt model=\"%s\" provider=\"%s\" delay=\"%s\" temperature=\"%s\">%s</prompt>\n",
			utils.EscapeXML(orDefault(step.Model)),
			utils.EscapeXML(orDefault(step.Provider)),
			strconv.FormatFloat(step.Delay.Seconds(), 'f', -1, 64),
			temperature,
			utils.EscapeXML(step.Prompt),
		)
	}

	b.WriteString("</root>\n```\n")
	return b.String()
}
