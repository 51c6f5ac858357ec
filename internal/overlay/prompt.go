package overlay

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// promptTemplates are keyed by style. {object} and {time} are substituted.
var promptTemplates = map[string][]string{
	"basic": {
		"Find a {object} in {time} seconds!",
		"Show me a {object} quickly!",
		"Grab a {object} and point your camera at it!",
		"Hunt down a {object}, time is ticking!",
		"Can you find a {object}? Hurry up!",
	},
	"fun": {
		"Scoop up a {object} before time runs out!",
		"Time to find a {object} now!",
		"Hunter, show me a {object} in {time} seconds!",
		"Quick, find a {object} now!",
		"Find and show me a {object}!",
	},
	"dynamic": {
		"Almost there, tilt the camera to show the {object} clearly!",
		"Getting closer, make sure the {object} is in frame!",
		"Keep hunting for a {object}!",
	},
	"themed": {
		"Search the room for a {object}!",
		"Use your camera to find a {object}!",
		"Scan the area for a {object}, explorer!",
		"Detective, uncover a {object} now!",
		"Time to hunt down a {object}!",
	},
}

// PromptStyles lists the known prompt styles.
func PromptStyles() []string {
	return []string{"basic", "fun", "dynamic", "themed"}
}

// Prompter picks one template per target and keeps it until the target changes.
type Prompter struct {
	templates []string
	rng       *rand.Rand

	target   string
	template string
}

// NewPrompter creates a prompter for style. Unknown styles fall back to "basic".
func NewPrompter(style string, rng *rand.Rand) *Prompter {
	templates, ok := promptTemplates[style]
	if !ok {
		templates = promptTemplates["basic"]
	}
	return &Prompter{templates: templates, rng: rng}
}

// Prompt returns the instruction line for target with remaining time on the clock.
func (p *Prompter) Prompt(target string, remaining time.Duration) string {
	if target == "" {
		return ""
	}
	if target != p.target {
		p.target = target
		p.template = p.templates[p.intN(len(p.templates))]
	}

	r := strings.NewReplacer(
		"{object}", target,
		"{time}", fmt.Sprintf("%d", int(remaining.Seconds())),
	)
	return r.Replace(p.template)
}

func (p *Prompter) intN(n int) int {
	if p.rng != nil {
		return p.rng.IntN(n)
	}
	return rand.IntN(n)
}
