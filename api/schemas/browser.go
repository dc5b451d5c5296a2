package schemas

// -- Browser Environment Schemas --

// Environment identifies the kind of computer environment the driver controls.
type Environment string

const (
	// EnvironmentUnspecified defaults to browser.
	EnvironmentUnspecified Environment = "ENVIRONMENT_UNSPECIFIED"
	// EnvironmentBrowser operates in a web browser.
	EnvironmentBrowser Environment = "ENVIRONMENT_BROWSER"
)

// ComputerState is an immutable snapshot of the environment, produced after
// every action. The screenshot is the rendered viewport in PNG format.
type ComputerState struct {
	Screenshot []byte `json:"-"`
	URL        string `json:"url,omitempty"`
}

// UIElementType distinguishes text labels from icons in detector output.
type UIElementType string

const (
	UIElementText UIElementType = "text"
	UIElementIcon UIElementType = "icon"
)

// UIElement is one candidate element reported by the detector service.
// It is ephemeral: valid only for the screenshot it was parsed from.
type UIElement struct {
	ID      int           `json:"id"`
	Type    UIElementType `json:"type"`
	Content string        `json:"content,omitempty"`
	// Center is the [x, y] pixel coordinate of the element's center.
	// May be absent for elements the detector could not localize.
	Center []int `json:"center,omitempty"`
}

// ScreenSize holds viewport dimensions in physical pixels.
type ScreenSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}
