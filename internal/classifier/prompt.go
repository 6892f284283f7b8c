package classifier

import (
	"fmt"
	"strings"

	"github.com/safetycheck/safetycheck/internal/schema"
)

const promptPreamble = `You are a safety analysis agent assessing user-generated content for
misinformation, scams, and harmful narratives. Ground every conclusion
in the provided input only. Never classify content as false without
explicit evidence; when evidence is absent, prefer "Unverifiable" over
"False". Sensational language alone is not sufficient to mark content
as false. Risk assessment must follow claim verification, not precede
it.

Respond with a single JSON object and nothing else:
{
  "risk_score": 0.0-1.0,
  "risk_level": "Minimal" | "Low" | "Moderate" | "High" | "Critical",
  "summary": "neutral, non-accusatory, max 500 chars",
  "key_signals": ["2-5 concrete signals from the input"],
  "fact_checks": [
    {
      "claim": "...",
      "verdict": "True" | "False" | "Misleading" | "Unverifiable" | "Lacks Context",
      "explanation": "...",
      "citations": [{"source_name": "...", "url": "...", "excerpt": "..."}]
    }
  ]
}

risk_level must match risk_score: Minimal [0,0.25), Low [0.25,0.5),
Moderate [0.5,0.7), High [0.7,0.9), Critical [0.9,1.0]. Omit
fact_checks when no verifiable factual claims are present; every
included fact check needs 1-3 citations.`

const imageDirective = `An image accompanies this content. Analyze it together with the text:
look for spoofed interfaces, counterfeit branding, fabricated
screenshots, and text inside the image. Include at least one visual
signal if suspicious elements are found.`

// BuildPrompt flattens a canonical post into the analysis prompt. Every
// optional section degrades to a fixed placeholder so prompt shape stays
// stable regardless of which fields the adapter filled in.
func BuildPrompt(post *schema.CanonicalPost, withImage bool) string {
	var sb strings.Builder
	sb.WriteString(promptPreamble)
	if withImage {
		sb.WriteString("\n\n")
		sb.WriteString(imageDirective)
	}

	sb.WriteString("\n\nContent to analyze:\n")
	fmt.Fprintf(&sb, "Text: %q\n", post.PostText)
	fmt.Fprintf(&sb, "Platform: %s\n", post.Platform)
	fmt.Fprintf(&sb, "Media: %s\n", mediaSummary(post.MediaFeatures))
	fmt.Fprintf(&sb, "Author: %s\n", authorContext(post.AuthorMetadata))
	fmt.Fprintf(&sb, "Engagement: %s\n", engagementContext(post.EngagementMetrics))
	fmt.Fprintf(&sb, "External links: %s\n", linksContext(post.ExternalLinks))

	if len(post.SampledComments) > 0 {
		sb.WriteString("Sampled comments:\n")
		for _, c := range post.SampledComments {
			fmt.Fprintf(&sb, "- %q\n", c)
		}
	}
	return sb.String()
}

func authorContext(am *schema.AuthorMetadata) string {
	if am == nil {
		return "Unknown"
	}
	parts := []string{
		fmt.Sprintf("type %s", am.AuthorType),
		fmt.Sprintf("account age %s", am.AccountAgeBucket),
	}
	if am.IsVerified != nil {
		if *am.IsVerified {
			parts = append(parts, "verified")
		} else {
			parts = append(parts, "not verified")
		}
	}
	if am.FollowerCountBucket != "" {
		parts = append(parts, fmt.Sprintf("followers %s", am.FollowerCountBucket))
	}
	return strings.Join(parts, ", ")
}

func engagementContext(em *schema.EngagementMetrics) string {
	if em == nil {
		return "Unknown"
	}
	var parts []string
	if em.Likes != nil {
		parts = append(parts, fmt.Sprintf("%d likes", *em.Likes))
	}
	if em.Shares != nil {
		parts = append(parts, fmt.Sprintf("%d shares", *em.Shares))
	}
	if em.Replies != nil {
		parts = append(parts, fmt.Sprintf("%d replies", *em.Replies))
	}
	if em.Views != nil {
		parts = append(parts, fmt.Sprintf("%d views", *em.Views))
	}
	if len(parts) == 0 {
		return "No engagement data available"
	}
	return strings.Join(parts, ", ")
}

func mediaSummary(mf *schema.MediaFeatures) string {
	if mf == nil {
		return "None"
	}
	var parts []string
	if mf.Caption != "" {
		parts = append(parts, fmt.Sprintf("Image description: %s", mf.Caption))
	}
	if mf.OCRText != "" {
		parts = append(parts, fmt.Sprintf("Text in image: %q", mf.OCRText))
	}
	if len(mf.DetectedObjects) > 0 {
		parts = append(parts, fmt.Sprintf("Detected objects: %s", strings.Join(mf.DetectedObjects, ", ")))
	}
	if len(parts) == 0 {
		return "No media features extracted"
	}
	return strings.Join(parts, "; ")
}

func linksContext(links []string) string {
	if len(links) == 0 {
		return "None"
	}
	return strings.Join(links, ", ")
}
