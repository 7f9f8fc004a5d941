package providers

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackzampolin/doodlebook/internal/story"
)

// analysisContract is the structured output contract for StoryAnalyzer.
var analysisContract = newStructuredContract("story_analysis", json.RawMessage(`{
  "type": "object",
  "additionalProperties": false,
  "required": ["subject", "character_appearance", "environment", "suggested_action", "story_title", "pages", "artist_name", "year", "grade", "age"],
  "properties": {
    "subject": {"type": "string", "minLength": 1},
    "character_appearance": {"type": "string"},
    "environment": {"type": "string"},
    "suggested_action": {"type": "string"},
    "story_title": {"type": "string", "minLength": 1},
    "pages": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "additionalProperties": false,
        "required": ["text", "image_prompt"],
        "properties": {
          "text": {"type": "string", "minLength": 1},
          "image_prompt": {"type": "string"}
        }
      }
    },
    "artist_name": {"type": "string"},
    "year": {"type": "string"},
    "grade": {"type": "string"},
    "age": {"type": "string"}
  }
}`))

// analysisPrompt asks for a ten page story. The count is not enforced by the
// schema; shorter stories are accepted.
const analysisPrompt = `You are a world-class children's storyteller. Look at this drawing and:
1. Identify the subject.
2. Describe the character's appearance in detail (colors, shapes, key features) so an artist can keep it consistent.
3. Imagine a whimsical 3D environment for it.
4. Suggest one fun action.
5. Write a whimsical 10-page picture book adventure. Each page has "text" (one or two simple sentences for a child) and "image_prompt" (a detailed description of that story moment).
6. If the child wrote a name, age, grade or date on the paper, fill "artist_name", "age", "grade" and "year". Otherwise leave them empty.

Return only JSON matching the schema.`

// illustrationPrompt builds the per-page image prompt.
func illustrationPrompt(character, scene string) string {
	return fmt.Sprintf(`Using the character from the reference drawing (described as: %s), create a consistent high-quality 3D Pixar-style illustration for a children's book. The character must look exactly like the reference but in this new situation: %s. Vivid colors, cinematic lighting.`,
		strings.TrimSpace(character), strings.TrimSpace(scene))
}

// animationPrompt builds the movie prompt from an analysis.
func animationPrompt(a *story.Analysis) string {
	return fmt.Sprintf(`A magical, high-quality 3D cinematic animation in the style of a modern animated movie. The character %s (visual features: %s) comes to life and is %s in a vibrant %s. Professional 3D lighting, smooth motion.`,
		strings.TrimSpace(a.Subject),
		strings.TrimSpace(a.CharacterAppearance),
		strings.TrimSpace(a.SuggestedAction),
		strings.TrimSpace(a.Environment))
}

// decodeAnalysis extracts and validates a story plan from model output.
func decodeAnalysis(content string) (*story.Analysis, error) {
	var a story.Analysis
	if err := analysisContract.Decode(content, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
