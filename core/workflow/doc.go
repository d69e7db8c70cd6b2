// Package workflow reads WorkflowDocuments and executes them on a canvas.
//
// A document is a markdown note whose frontmatter sets caret_prompt to
// linear or parallel, followed by a fenced xml block:
//
//	---
//	caret_prompt: linear
//	---
//	```xml
//	<root>
//	  <system_prompt>You are terse.</system_prompt>
//	  <prompt model="default" provider="default" delay="0" temperature="1">First</prompt>
//	  <prompt model="gpt-4o" provider="openai" delay="5" temperature="0.2">Second</prompt>
//	</root>
//	```
//
// [Expander] creates the user nodes and hands each one to a [Turn] which
// produces the assistant reply. Linear steps run in order, each chained off
// the previous reply. Parallel steps fan out from the source node and run
// concurrently; a failed branch does not cancel its siblings.
package workflow
