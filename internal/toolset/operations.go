// File: internal/toolset/operations.go
package toolset

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/gazerhq/gazer/api/schemas"
)

const defaultScrollMagnitude = 800

// -- Argument extraction --
// Arguments arrive as decoded JSON, so numbers are float64 and absence is a
// missing map key.

func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("%w: missing argument %q", schemas.ErrInvalidInput, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: argument %q must be a string", schemas.ErrInvalidInput, key)
	}
	return s, nil
}

func argNumber(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing argument %q", schemas.ErrInvalidInput, key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%w: argument %q must be a number", schemas.ErrInvalidInput, key)
	}
}

func argNumberOr(args map[string]any, key string, fallback float64) (float64, error) {
	if _, ok := args[key]; !ok {
		return fallback, nil
	}
	return argNumber(args, key)
}

func argBool(args map[string]any, key string, fallback bool) (bool, error) {
	v, ok := args[key]
	if !ok {
		return fallback, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: argument %q must be a boolean", schemas.ErrInvalidInput, key)
	}
	return b, nil
}

func argStringSlice(args map[string]any, key string) ([]string, error) {
	v, ok := args[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing argument %q", schemas.ErrInvalidInput, key)
	}
	raw, ok := v.([]any)
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss, nil
		}
		return nil, fmt.Errorf("%w: argument %q must be an array of strings", schemas.ErrInvalidInput, key)
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: argument %q must be an array of strings", schemas.ErrInvalidInput, key)
		}
		out = append(out, s)
	}
	return out, nil
}

// -- Schema helpers --

func objectSchema(required []string, props map[string]*genai.Schema) *genai.Schema {
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   required,
	}
}

func stringProp(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

func numberProp(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeNumber, Description: desc}
}

func boolProp(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeBoolean, Description: desc}
}

var directionProp = &genai.Schema{
	Type:        genai.TypeString,
	Description: "Scroll direction: up, down, left, or right.",
}

// registerCommon installs the operations shared by both toolset variants.
func (t *Toolset) registerCommon() {
	t.register(&Operation{
		Name:        "open_web_browser",
		Description: "Opens the web browser at its start page and returns the current state.",
		Parameters:  objectSchema(nil, nil),
		run: func(ctx context.Context, _ map[string]any) (schemas.ComputerState, error) {
			return t.browser.OpenWebBrowser(ctx)
		},
	})
	t.register(&Operation{
		Name:        "navigate",
		Description: "Navigates the browser to the given URL.",
		Parameters: objectSchema([]string{"url"}, map[string]*genai.Schema{
			"url": stringProp("The URL to open. The https scheme is assumed when omitted."),
		}),
		run: func(ctx context.Context, args map[string]any) (schemas.ComputerState, error) {
			url, err := argString(args, "url")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			return t.browser.Navigate(ctx, url)
		},
	})
	t.register(&Operation{
		Name:        "search",
		Description: "Opens the default search engine.",
		Parameters:  objectSchema(nil, nil),
		run: func(ctx context.Context, _ map[string]any) (schemas.ComputerState, error) {
			return t.browser.Search(ctx)
		},
	})
	t.register(&Operation{
		Name:        "go_back",
		Description: "Navigates one step back in browser history.",
		Parameters:  objectSchema(nil, nil),
		run: func(ctx context.Context, _ map[string]any) (schemas.ComputerState, error) {
			return t.browser.GoBack(ctx)
		},
	})
	t.register(&Operation{
		Name:        "go_forward",
		Description: "Navigates one step forward in browser history.",
		Parameters:  objectSchema(nil, nil),
		run: func(ctx context.Context, _ map[string]any) (schemas.ComputerState, error) {
			return t.browser.GoForward(ctx)
		},
	})
	t.register(&Operation{
		Name:        "type_text",
		Description: "Types text into the focused element, optionally clearing it first and pressing Enter after.",
		Parameters: objectSchema([]string{"text"}, map[string]*genai.Schema{
			"text":                stringProp("The text to type."),
			"press_enter":         boolProp("Press Enter after typing."),
			"clear_before_typing": boolProp("Clear the existing content before typing."),
		}),
		run: func(ctx context.Context, args map[string]any) (schemas.ComputerState, error) {
			text, err := argString(args, "text")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			pressEnter, err := argBool(args, "press_enter", false)
			if err != nil {
				return schemas.ComputerState{}, err
			}
			clear, err := argBool(args, "clear_before_typing", true)
			if err != nil {
				return schemas.ComputerState{}, err
			}
			return t.browser.TypeText(ctx, text, pressEnter, clear)
		},
	})
	t.register(&Operation{
		Name:        "scroll_document",
		Description: "Scrolls the whole document one page up or down, or half a viewport left or right.",
		Parameters: objectSchema([]string{"direction"}, map[string]*genai.Schema{
			"direction": directionProp,
		}),
		run: func(ctx context.Context, args map[string]any) (schemas.ComputerState, error) {
			direction, err := argString(args, "direction")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			return t.browser.ScrollDocument(ctx, direction)
		},
	})
	t.register(&Operation{
		Name:        "key_combination",
		Description: "Presses a key combination, e.g. [\"control\", \"c\"].",
		Parameters: objectSchema([]string{"keys"}, map[string]*genai.Schema{
			"keys": {
				Type:        genai.TypeArray,
				Description: "Keys of the chord, modifiers first.",
				Items:       stringProp("A key name or single character."),
			},
		}),
		run: func(ctx context.Context, args map[string]any) (schemas.ComputerState, error) {
			keys, err := argStringSlice(args, "keys")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			return t.browser.KeyCombination(ctx, keys)
		},
	})
	t.register(&Operation{
		Name:        "wait",
		Description: "Waits for the given number of seconds.",
		Parameters: objectSchema([]string{"seconds"}, map[string]*genai.Schema{
			"seconds": numberProp("How long to wait, in seconds."),
		}),
		run: func(ctx context.Context, args map[string]any) (schemas.ComputerState, error) {
			seconds, err := argNumber(args, "seconds")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			return t.browser.Wait(ctx, seconds)
		},
	})
	t.register(&Operation{
		Name:        "current_state",
		Description: "Captures the current page state without acting on it.",
		Parameters:  objectSchema(nil, nil),
		run: func(ctx context.Context, _ map[string]any) (schemas.ComputerState, error) {
			return t.browser.CurrentState(ctx)
		},
	})
	t.register(&Operation{
		Name:        "screen_size",
		Description: "Reports the screen dimensions in pixels.",
		Parameters:  objectSchema(nil, nil),
		query: func(context.Context) (map[string]any, error) {
			size := t.browser.ScreenSize()
			return map[string]any{"width": size.Width, "height": size.Height}, nil
		},
	})
	t.register(&Operation{
		Name:        "environment",
		Description: "Reports the kind of computer environment being controlled.",
		Parameters:  objectSchema(nil, nil),
		query: func(context.Context) (map[string]any, error) {
			return map[string]any{"environment": string(t.browser.Environment())}, nil
		},
	})
}

// registerGrounded installs the pointer tools that take natural-language
// element descriptions resolved through visual grounding.
func (t *Toolset) registerGrounded() {
	descProp := stringProp("Natural-language description of the target element, e.g. \"the blue Submit button, bottom right\".")

	t.register(&Operation{
		Name:        "click_at",
		Description: "Clicks the element matching the description.",
		Parameters: objectSchema([]string{"description"}, map[string]*genai.Schema{
			"description": descProp,
		}),
		run: func(ctx context.Context, args map[string]any) (schemas.ComputerState, error) {
			description, err := argString(args, "description")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			return t.browser.ClickAt(ctx, description)
		},
	})
	t.register(&Operation{
		Name:        "hover_at",
		Description: "Moves the mouse over the element matching the description.",
		Parameters: objectSchema([]string{"description"}, map[string]*genai.Schema{
			"description": descProp,
		}),
		run: func(ctx context.Context, args map[string]any) (schemas.ComputerState, error) {
			description, err := argString(args, "description")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			return t.browser.HoverAt(ctx, description)
		},
	})
	t.register(&Operation{
		Name:        "scroll_at",
		Description: "Scrolls at the position of the element matching the description.",
		Parameters: objectSchema([]string{"description", "direction"}, map[string]*genai.Schema{
			"description": descProp,
			"direction":   directionProp,
			"magnitude":   numberProp("Scroll distance in pixels. Defaults to 800."),
		}),
		run: func(ctx context.Context, args map[string]any) (schemas.ComputerState, error) {
			description, err := argString(args, "description")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			direction, err := argString(args, "direction")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			magnitude, err := argNumberOr(args, "magnitude", defaultScrollMagnitude)
			if err != nil {
				return schemas.ComputerState{}, err
			}
			return t.browser.ScrollAt(ctx, description, direction, magnitude)
		},
	})
	t.register(&Operation{
		Name:        "drag_and_drop",
		Description: "Drags the source element onto the destination element.",
		Parameters: objectSchema([]string{"source_description", "destination_description"}, map[string]*genai.Schema{
			"source_description":      stringProp("Description of the element to drag."),
			"destination_description": stringProp("Description of the drop target."),
		}),
		run: func(ctx context.Context, args map[string]any) (schemas.ComputerState, error) {
			source, err := argString(args, "source_description")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			destination, err := argString(args, "destination_description")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			return t.browser.DragAndDrop(ctx, source, destination)
		},
	})
}

// registerCoordinates installs the pointer tools that take virtual-screen
// coordinates; each coordinate is normalized onto the physical viewport.
func (t *Toolset) registerCoordinates() {
	xProp := numberProp(fmt.Sprintf("X coordinate on the %d-wide virtual screen.", t.virtualW))
	yProp := numberProp(fmt.Sprintf("Y coordinate on the %d-tall virtual screen.", t.virtualH))

	t.register(&Operation{
		Name:        "click_at",
		Description: "Clicks at the given virtual-screen coordinate.",
		Parameters: objectSchema([]string{"x", "y"}, map[string]*genai.Schema{
			"x": xProp, "y": yProp,
		}),
		run: func(ctx context.Context, args map[string]any) (schemas.ComputerState, error) {
			vx, vy, err := argPoint(args, "x", "y")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			px, py := t.toPixels(vx, vy)
			return t.browser.ClickAtPixels(ctx, px, py)
		},
	})
	t.register(&Operation{
		Name:        "hover_at",
		Description: "Moves the mouse to the given virtual-screen coordinate.",
		Parameters: objectSchema([]string{"x", "y"}, map[string]*genai.Schema{
			"x": xProp, "y": yProp,
		}),
		run: func(ctx context.Context, args map[string]any) (schemas.ComputerState, error) {
			vx, vy, err := argPoint(args, "x", "y")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			px, py := t.toPixels(vx, vy)
			return t.browser.HoverAtPixels(ctx, px, py)
		},
	})
	t.register(&Operation{
		Name:        "scroll_at",
		Description: "Scrolls at the given virtual-screen coordinate.",
		Parameters: objectSchema([]string{"x", "y", "direction"}, map[string]*genai.Schema{
			"x": xProp, "y": yProp,
			"direction": directionProp,
			"magnitude": numberProp("Scroll distance in pixels. Defaults to 800."),
		}),
		run: func(ctx context.Context, args map[string]any) (schemas.ComputerState, error) {
			vx, vy, err := argPoint(args, "x", "y")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			direction, err := argString(args, "direction")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			magnitude, err := argNumberOr(args, "magnitude", defaultScrollMagnitude)
			if err != nil {
				return schemas.ComputerState{}, err
			}
			px, py := t.toPixels(vx, vy)
			return t.browser.ScrollAtPixels(ctx, px, py, direction, magnitude)
		},
	})
	t.register(&Operation{
		Name:        "drag_and_drop",
		Description: "Drags from the source coordinate to the destination coordinate, both on the virtual screen.",
		Parameters: objectSchema([]string{"x", "y", "destination_x", "destination_y"}, map[string]*genai.Schema{
			"x": xProp, "y": yProp,
			"destination_x": numberProp("Destination X on the virtual screen."),
			"destination_y": numberProp("Destination Y on the virtual screen."),
		}),
		run: func(ctx context.Context, args map[string]any) (schemas.ComputerState, error) {
			vx, vy, err := argPoint(args, "x", "y")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			dvx, dvy, err := argPoint(args, "destination_x", "destination_y")
			if err != nil {
				return schemas.ComputerState{}, err
			}
			sx, sy := t.toPixels(vx, vy)
			dx, dy := t.toPixels(dvx, dvy)
			return t.browser.DragAndDropPixels(ctx, sx, sy, dx, dy)
		},
	})
}

func argPoint(args map[string]any, xKey, yKey string) (float64, float64, error) {
	x, err := argNumber(args, xKey)
	if err != nil {
		return 0, 0, err
	}
	y, err := argNumber(args, yKey)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}
