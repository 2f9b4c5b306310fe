package domain

// Wire types for the Actions protocol. Field names are fixed camelCase;
// wallets reject descriptors with unknown casing.

type ActionType string

const (
	ActionTypeAction    ActionType = "action"
	ActionTypeCompleted ActionType = "completed"
)

// ActionDescriptor is the GET discovery payload describing a blink.
type ActionDescriptor struct {
	Type        ActionType   `json:"type"`
	Icon        string       `json:"icon"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Label       string       `json:"label"`
	Disabled    bool         `json:"disabled,omitempty"`
	Links       *ActionLinks `json:"links,omitempty"`
	Error       *ActionError `json:"error,omitempty"`
}

type ActionLinks struct {
	Actions []LinkedAction `json:"actions"`
}

// LinkedAction is one POST-able action a wallet may render, with its
// input parameters templated into the href.
type LinkedAction struct {
	Label      string            `json:"label"`
	Href       string            `json:"href"`
	Parameters []ActionParameter `json:"parameters,omitempty"`
}

type ActionParameter struct {
	Type     string                  `json:"type,omitempty"`
	Name     string                  `json:"name"`
	Label    string                  `json:"label"`
	Required bool                    `json:"required"`
	Min      *float64                `json:"min,omitempty"`
	Options  []ActionParameterOption `json:"options,omitempty"`
}

type ActionParameterOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type ActionError struct {
	Message string `json:"message"`
}

// PostResponse carries a base64 unsigned transaction back to the
// wallet, optionally chaining a follow-up action.
type PostResponse struct {
	Transaction string     `json:"transaction"`
	Message     *string    `json:"message,omitempty"`
	Links       *PostLinks `json:"links,omitempty"`
}

type PostLinks struct {
	Next NextAction `json:"next"`
}

// NextAction points the wallet at the action to invoke after the
// returned transaction lands.
type NextAction struct {
	Type string `json:"type"`
	Href string `json:"href"`
}

// SizeOptions is the apparel size selector rendered for
// platform-fulfilled products.
func SizeOptions() []ActionParameterOption {
	return []ActionParameterOption{
		{Label: "Small", Value: "S"},
		{Label: "Medium", Value: "M"},
		{Label: "Large", Value: "L"},
		{Label: "XL", Value: "XL"},
		{Label: "2XL", Value: "XXL"},
		{Label: "3XL", Value: "XXXL"},
	}
}

// DisabledDescriptor is the degraded descriptor served when a blink
// target cannot be resolved; wallets render it greyed out with the
// error message instead of failing the unfurl.
func DisabledDescriptor(title, message string) *ActionDescriptor {
	return &ActionDescriptor{
		Type:     ActionTypeAction,
		Title:    title,
		Label:    "Unavailable",
		Disabled: true,
		Error:    &ActionError{Message: message},
	}
}
