// File: internal/grounding/prompt.go
package grounding

import (
	"fmt"
	"strings"

	"github.com/gazerhq/gazer/api/schemas"
)

// systemPrompt instructs the vision model to behave as a pure
// description-to-coordinate function. The output contract is deliberately
// rigid so the reply can be machine-validated.
const systemPrompt = `You are a precise visual grounding assistant for a browser automation system.

You are given an annotated screenshot of a web page. Detected UI elements are
outlined and labeled with numeric IDs, and a structured list of those elements
is provided alongside the image.

Given a natural-language description of a target element, identify the single
element on screen that best matches the description and respond with the pixel
coordinate of its center.

Respond with ONLY a JSON object of this exact shape, and nothing else:

{"center": [x, y]}

where x and y are numbers in screenshot pixel coordinates. Do not add
explanations, markdown fences, or any other keys.`

// buildUserPrompt renders the per-request prompt with the target description
// and the detector's element inventory.
func buildUserPrompt(description string, elements []schemas.UIElement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Target element description: %q\n\n", description)

	if len(elements) == 0 {
		b.WriteString("No elements were detected on this screenshot. Locate the target visually.\n")
		return b.String()
	}

	b.WriteString("Detected elements:\n")
	for _, el := range elements {
		fmt.Fprintf(&b, "  [%d] type=%s", el.ID, el.Type)
		if el.Content != "" {
			fmt.Fprintf(&b, " content=%q", el.Content)
		}
		if len(el.Center) == 2 {
			fmt.Fprintf(&b, " center=(%d, %d)", el.Center[0], el.Center[1])
		}
		b.WriteString("\n")
	}
	return b.String()
}
