package structured

import (
	"fmt"
	"strings"

	"github.com/sells-group/challenge-resolver/internal/model"
)

const instructions = `You are extracting food challenge metadata from a video's metadata.

Extract these fields:
- restaurant: the venue name, or null if it is not named
- city: the city, or null
- country: two-letter country code (US, UK, CA, NO, FI, ...), or null
- result: "success", "failure" or "unknown"
- food_type: primary food category ("burger", "pizza", "bbq", "breakfast", "mixed_grill", "sandwich", "wings", "noodles", "dessert", ...), or null
- confidence: your confidence in this extraction, 0.0 to 1.0

Difficulty scores, each an integer from 0 to 10:
- food_volume_score: 0 = snack, 5 = large meal, 10 = enormous multi-person portion
- time_limit_score: 0 = no limit, 5 = moderate, 10 = very tight
- success_rate_score: 0 = everyone wins, 5 = half succeed, 10 = almost nobody completes it
- spiciness_score: 0 = not spicy, 5 = medium heat, 10 = extreme
- food_diversity_score: 0 = single item, 5 = a few items, 10 = huge variety
- risk_level_score: 0 = nothing at stake, 5 = moderate cost, 10 = high cost to fail or large prize to win

Source precedence: the transcript outranks the description, and the description
outranks the title. The title is context only and never the sole basis for the
result when another source disagrees. If a transcript is present, prefer the
venue name it gives.

Result policy:
- "success" when completion language dominates: completed, won, beat it, finished, demolished, did it.
- "failure" when incompletion language dominates: couldn't, failed, gave up, too much, tapped out.
- A title phrased "tried to" or "attempting" leans weakly toward "failure"; stronger
  success language elsewhere, especially in the transcript, overrides it.
- "unknown" only when nothing supports either outcome.

Location notes:
- US states (Kentucky, Texas, ...) use country "US".
- UK nations and regions (Wales, Scotland, England) use country "UK".
- "IN <PLACE> FOR ..." in a title means the challenge is in PLACE.
- "at <Venue>" in the description usually names the venue.
- Use null rather than guessing.`

const schema = `Respond ONLY with a JSON object with exactly these keys:
{
  "restaurant": string or null,
  "city": string or null,
  "country": two-letter string or null,
  "result": "success" | "failure" | "unknown",
  "food_type": string or null,
  "confidence": number between 0 and 1,
  "food_volume_score": integer 0-10,
  "time_limit_score": integer 0-10,
  "success_rate_score": integer 0-10,
  "spiciness_score": integer 0-10,
  "food_diversity_score": integer 0-10,
  "risk_level_score": integer 0-10,
  "reasoning": short string (optional)
}`

const retryInstruction = `Your previous reply was rejected: %s.
Respond with strictly valid JSON matching the schema above and nothing else.`

// BuildPrompt renders the fixed extraction template for sig.
func BuildPrompt(sig model.RawSignals) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\nVideo Title:\n")
	b.WriteString(orNone(sig.Title, "Not available"))
	b.WriteString("\n\nVideo Description:\n")
	b.WriteString(orNone(sig.Description, "Not available"))
	b.WriteString("\n\nVideo Tags:\n")
	b.WriteString(orNone(strings.Join(sig.Tags, ", "), "None"))
	b.WriteString("\n\nVideo Transcript (intro):\n")
	b.WriteString(orNone(sig.CaptionIntro, "Not available"))
	b.WriteString("\n\n")
	b.WriteString(schema)
	return b.String()
}

func retryPrompt(prompt string, violations []string) string {
	return prompt + "\n\n" + fmt.Sprintf(retryInstruction, strings.Join(violations, "; "))
}

func orNone(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
