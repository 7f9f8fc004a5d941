package generation

import "time"

const (
	ProgressAnalyzing = "Discovering the story in your drawing..."

	MessageAnalyzeFailed = "Magic failed! Try a clearer photo."
	MessageAPIKey        = "API key error. Check the provider api_key in your config."
	MessageGeneric       = "Something went wrong. Please try again!"
)

// whimsy is shown while a long job runs, rotating every few seconds.
var whimsy = []string{
	"Consulting the Wise Old Owl for plot twists... 🦉",
	"Polishing the stars for extra twinkle... ⭐",
	"Sprinkling extra-strength imagination dust... ✨",
	"Teaching your character how to high-five... ✋",
	"Baking a batch of fresh happy endings... 🧁",
	"Checking if the dragons have brushed their teeth... 🐉",
	"Collecting giggles to fuel the magic engine... 🤭",
	"Knitting a cozy sweater for the plot... 🧶",
	"Inviting unicorns to the movie wrap party... 🦄",
	"Catching moonbeams in a jar... 🫙",
	"Teaching the clouds how to dance... ☁️",
	"Asking the trees to wave hello... 🌳",
	"Stretching the rainbows to reach the next chapter... 🌈",
	"Mixing a palette of colors that don't exist yet... 🎨",
}

// WhimsyInterval is how long each whimsical message is shown.
const WhimsyInterval = 4 * time.Second

// Whimsy returns the message to show after elapsed time in a long job.
func Whimsy(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	return whimsy[int(elapsed/WhimsyInterval)%len(whimsy)]
}
