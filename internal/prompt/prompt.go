// Package prompt assembles retrieved chunks and a question into the
// grounding prompt sent to the language model.
package prompt

import (
	"fmt"
	"strings"

	"github.com/coldcase-labs/detective/internal/domain"
)

// blockSeparator visibly separates source-tagged context blocks.
const blockSeparator = "\n\n---\n\n"

// template carries the detective persona and the grounding instructions:
// answer only from supplied context, decline explicitly when the context is
// insufficient, cite the source file name in parentheses.
const template = `You are a veteran Cold Case Detective with decades of experience solving complex mysteries.

Your guidelines:
1. Use ONLY the provided context (evidence) to answer questions
2. If the answer is not found in the evidence, say: "I don't have that information in the evidence yet, Detective. We need more leads."
3. Always cite your source by including the filename in parentheses at the end of each relevant sentence
4. Think methodically and connect evidence logically
5. Maintain a professional but gritty detective persona

Context from the evidence files:
%s

Question: %s
`

// Assemble formats each retrieved chunk as a source-tagged block and
// substitutes the joined context plus the verbatim question into the
// template. An empty retrieval still renders the template with an empty
// context block; the template's decline instruction governs that case.
func Assemble(question string, results []domain.ScoredChunk) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		blocks[i] = fmt.Sprintf("[Source: %s]\n%s", r.Chunk.Source, r.Chunk.Text)
	}
	return fmt.Sprintf(template, strings.Join(blocks, blockSeparator), question)
}
