// Package prompt assembles the instruction templates fed to the model. The
// depth setting selects between a concise synthesized answer and a long-form
// academic article; both share the same citation contract.
package prompt

import (
	"fmt"
	"strings"

	"github.com/sageview/sageview/internal/aggregate"
	"github.com/sageview/sageview/internal/search"
)

// Context concatenates sources as numbered, URL-tagged blocks in index order.
// The displayed number is Index+1 so it matches the [N] citation markers the
// model is instructed to emit.
func Context(sources []aggregate.Source) string {
	var sb strings.Builder
	for _, s := range sources {
		sb.WriteString(fmt.Sprintf("Source [%d] (%s):\n%s\n\n---\n\n", s.Index+1, s.URL, s.Text))
	}
	return sb.String()
}

// Build returns the full synthesis prompt for the given depth.
func Build(query string, contextStr string, depth search.Depth) string {
	base := baseInstructions(query, contextStr)
	if depth == search.DepthDeep {
		return base + deepInstructions(query) + "\nSynthesized Deep Research Article (Markdown format):"
	}
	return base + quickInstructions + "\nSynthesized Answer (Markdown format):"
}

func baseInstructions(query, contextStr string) string {
	return fmt.Sprintf(`User Query: "%s"

Sources:
--- START OF SOURCES ---
%s--- END OF SOURCES ---

General Instructions:
1.  Analyze the User Query and ALL provided Sources meticulously. Ignore irrelevant sources.
2.  **Cite (Inline):** Add `+"`[N]`"+` after information from Source N. Use individual markers `+"`[1][4][5]`"+` for combined info. Place before punctuation. **Accuracy is critical.**
3.  **Source Reliance:** Base the response *exclusively* on the provided sources. NO outside knowledge.
4.  **Clarity & Structure:** Use clear language and Markdown formatting.
5.  **Handling Gaps:** If sources lack info, state it clearly. Do not invent.
6.  **Tone:** Objective, factual, neutral.
7.  **Output:** Generate ONLY the Markdown answer, starting directly without preamble.
`, query, contextStr)
}

const quickInstructions = `
Specific Instructions for Quick Answer:
*   **Goal:** Concise, informative answer synthesizing key points from sources.
*   **Structure:** Use paragraphs, ` + "`### Subheadings`" + ` (optional), ` + "`* Bullet points`" + `.
`

func deepInstructions(query string) string {
	return fmt.Sprintf(`
COMPREHENSIVE ACADEMIC RESEARCH ARTICLE GENERATION GUIDELINES

Research Query: "%s"

ARTICLE STRUCTURE AND EXPECTATIONS:
1. Length: Generate a comprehensive research article of approximately 10-15 pages (2500-3750 words)
2. Academic Rigor: Produce a scholarly, well-researched, and critically analyzed response
3. Formatting: Use academic writing conventions with clear structure

DETAILED ARTICLE COMPONENTS:

I. Title Page
- Concise, informative title reflecting the research query
- Subtitle if appropriate

II. Abstract (250-300 words)
- Clearly state the research query
- Summarize key findings and their significance
- Briefly mention methodological approach

III. Introduction (500-600 words)
- Contextualize the research query
- State research objectives and their relevance
- Present central research questions

IV. Comprehensive Literature Review (800-1000 words)
- Systematic review of existing research
- Critical analysis of current knowledge
- Identify gaps and controversies
- Synthesize perspectives from multiple sources

V. Detailed Analysis and Discussion (1200-1500 words)
- In-depth exploration of findings
- Integrate evidence from provided sources
- Present multiple perspectives and address counterarguments
- Connect findings to broader context

VI. Conclusion (400-500 words)
- Summarize key findings
- Reflect on implications and future research directions

VII. References
- Comprehensive list of all cited sources in proper academic citation format

CITATION INSTRUCTIONS:
- Use numbered citation markers [1], [2], etc.
- Cite sources for all claims and data points
- Maintain academic integrity

FINAL INSTRUCTIONS:
- Prioritize accuracy and scholarly integrity
- Do not fabricate information
- If sources are insufficient, clearly state limitations

Generate the complete research article following these guidelines.`, query)
}

// Deep synthesis is chunked along natural document boundaries so each call
// stays inside a practical output budget. Each chunk prompt carries the full
// source context.

// StructureChunk asks for the title, abstract, and introduction only. It also
// carries the full article guidelines so the opening sections are written to
// fit the shape the later chunks will fill in.
func StructureChunk(query, contextStr string) string {
	return chunk(query, contextStr,
		"generate ONLY the Title, Abstract, and Introduction sections for a comprehensive academic research article. Focus on creating a strong foundation with a clear research question, context, and objectives.") +
		"\nThe finished article will follow these guidelines; write the opening sections to fit them:\n" +
		deepInstructions(query)
}

// AnalysisChunk asks for the literature review and analysis sections, assuming
// the opening sections already exist.
func AnalysisChunk(query, contextStr string) string {
	return chunk(query, contextStr,
		"generate ONLY the Literature Review and Analysis/Discussion sections for a comprehensive academic research article. The Title, Abstract, and Introduction have already been generated. Focus on thorough analysis of existing research and detailed discussion of findings.")
}

// ConclusionChunk asks for the conclusion and references, closing the article.
func ConclusionChunk(query, contextStr string) string {
	return chunk(query, contextStr,
		"generate ONLY the Conclusion and References sections for a comprehensive academic research article. The previous sections have already been generated. Focus on summarizing key findings and properly formatting all references.")
}

func chunk(query, contextStr, task string) string {
	return fmt.Sprintf(`User Query: "%s"

Based on the provided sources, %s

Cite inline with numbered markers [N] that refer to the source numbering below. Use only the provided sources. Output Markdown only, without preamble.

Sources:
--- START OF SOURCES ---
%s--- END OF SOURCES ---
`, query, task, contextStr)
}
