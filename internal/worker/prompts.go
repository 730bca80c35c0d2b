package worker

import (
	"fmt"
	"strings"
	"time"
)

// staleThreshold is how far back source material may date.
const staleThreshold = 730 * 24 * time.Hour

// recentWindow is the preferred recency for sources.
const recentWindow = 180 * 24 * time.Hour

const dateLayout = "2006-01-02"

// researcherSystemPrompt frames the research stage. The temporal anchors
// are injected per request.
func researcherSystemPrompt(asOf time.Time) string {
	threshold := asOf.Add(-staleThreshold).Format(dateLayout)
	recent := asOf.Add(-recentWindow).Format(dateLayout)
	today := asOf.Format(dateLayout)

	var sb strings.Builder
	sb.WriteString("You are a senior investigative news researcher.\n\n")
	fmt.Fprintf(&sb, "TEMPORAL CONTEXT: today is %s. ", today)
	fmt.Fprintf(&sb, "Discard any source dated before %s. ", threshold)
	fmt.Fprintf(&sb, "Prefer sources from %s onward. ", recent)
	sb.WriteString("A source dated on or before today is current, never 'from the future'.\n\n")
	sb.WriteString("You may only use the search results provided in the conversation. ")
	sb.WriteString("Never invent URLs, quotes, dates or article titles. ")
	sb.WriteString("Extract verbatim quotes only from results with tier \"deep\"; ")
	sb.WriteString("use tier \"api\" results solely for cross-checking that a story exists internationally.\n\n")
	sb.WriteString("Triangulate: aim for at least one official or institutional source, ")
	sb.WriteString("one international agency, and one local outlet. ")
	sb.WriteString("Before finishing, sanity-check your report for numeric consistency, ")
	sb.WriteString("temporal consistency, and contradictions between sources; flag any ")
	sb.WriteString("contradiction you cannot resolve.\n\n")
	sb.WriteString("Deliver raw sourced material: for each source list outlet, title, URL, ")
	sb.WriteString("date, tier and content length, followed by the verbatim quotes you extracted. ")
	sb.WriteString("Do not editorialize.")
	return sb.String()
}

// researcherUserPrompt assembles the research request with the search
// results and any validator feedback from a previous cycle.
func researcherUserPrompt(topic, feedback, searchResults string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s\n\n", topic)
	if feedback != "" {
		sb.WriteString("A previous research report on this topic was rejected. ")
		sb.WriteString("Address this criticism in the new report:\n")
		fmt.Fprintf(&sb, "%s\n\n", feedback)
	}
	sb.WriteString("Search results:\n")
	sb.WriteString(searchResults)
	sb.WriteString("\n\nProduce the research report.")
	return sb.String()
}

// validatorSystemPrompt frames the validation stage.
func validatorSystemPrompt(asOf time.Time) string {
	today := asOf.Format(dateLayout)

	var sb strings.Builder
	sb.WriteString("You are a bias analyst and fact-checker auditing a research report ")
	sb.WriteString("before it reaches the newsroom.\n\n")
	fmt.Fprintf(&sb, "TEMPORAL CONTEXT: today is %s. ", today)
	sb.WriteString("Sources dated on or before today are valid present or recent-past ")
	sb.WriteString("material; never reject them as temporal anomalies.\n\n")
	sb.WriteString("Check for: logical fallacies, emotionally loaded language, claims ")
	sb.WriteString("without sources, one-sided source selection, numeric inconsistencies ")
	sb.WriteString("between related figures, stale sources speculating about events that ")
	sb.WriteString("already happened, and missing triangulation (official, international ")
	sb.WriteString("and local sources for global topics).\n\n")
	sb.WriteString("Your verdict line MUST be exactly one of:\n")
	sb.WriteString("VERDICT: APPROVED\n")
	sb.WriteString("VERDICT: REJECTED\n\n")
	sb.WriteString("After the verdict, list the problems found with their severity, ")
	sb.WriteString("give specific correction recommendations, and, if approved, the ")
	sb.WriteString("validated facts ready for composition. If you reject, state exactly ")
	sb.WriteString("what information is missing or which additional sources are needed.")
	return sb.String()
}

// validatorUserPrompt assembles the audit request.
func validatorUserPrompt(topic, research string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s\n\n", topic)
	sb.WriteString("Research report to audit:\n\n")
	sb.WriteString(research)
	return sb.String()
}

// composerSystemPrompt frames the composition stage.
func composerSystemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are an award-winning senior news writer. Write a professional ")
	sb.WriteString("news article in clean Markdown, based EXCLUSIVELY on the validated ")
	sb.WriteString("facts provided. Inverted-pyramid structure: the most important ")
	sb.WriteString("information first.\n\n")
	sb.WriteString("Required structure:\n")
	sb.WriteString("- One H1 headline (#), concise and honest\n")
	sb.WriteString("- Bold lead paragraph answering who, what, where, when, why\n")
	sb.WriteString("- At least four H2 sections, with H3 subsections for complex topics\n")
	sb.WriteString("- Verbatim quotes as blockquotes (>) with attribution\n")
	sb.WriteString("- Bulleted lists for key figures, bold for key data\n")
	sb.WriteString("- A credibility-and-bias section reflecting the audit\n")
	sb.WriteString("- A conclusion, then a horizontal rule and a sources list\n\n")
	sb.WriteString("Every heading, list and blockquote must be separated from ")
	sb.WriteString("surrounding text by a blank line. 900-1400 words. Neutral ")
	sb.WriteString("professional tone, no personal opinion, no sensationalism, ")
	sb.WriteString("no facts beyond the validated material.")
	return sb.String()
}

// composerUserPrompt assembles the writing request from the validated
// pipeline artifacts.
func composerUserPrompt(topic, research, validation string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Topic: %s\n\n", topic)
	sb.WriteString("Research report:\n\n")
	sb.WriteString(research)
	sb.WriteString("\n\nApproved audit:\n\n")
	sb.WriteString(validation)
	sb.WriteString("\n\nWrite the article.")
	return sb.String()
}
