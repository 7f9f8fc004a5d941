package storybook

// Intent is a navigation request decoded from an input event.
type Intent string

const (
	IntentNone  Intent = ""
	IntentNext  Intent = "next"
	IntentPrev  Intent = "prev"
	IntentClose Intent = "close"
)

// KeyIntent maps a keyboard key name (as reported by KeyboardEvent.key) to an
// intent.
func KeyIntent(key string) Intent {
	switch key {
	case "ArrowRight", " ", "Space", "Spacebar":
		return IntentNext
	case "ArrowLeft":
		return IntentPrev
	case "Escape", "Esc":
		return IntentClose
	default:
		return IntentNone
	}
}
