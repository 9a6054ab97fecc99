package agent

import (
	"fmt"

	"github.com/crmarena/dbagent/internal/schema"
)

// systemPromptTemplate grounds the model in the live schema and pins the
// strict-JSON reply contract. The row-limit and reserved-word directives are
// advisory only; the safety gate enforces both regardless of compliance.
const systemPromptTemplate = `You are a concise SQLite expert. Given a natural language question, produce a JSON object:
{
  "sql": "<SELECT statement limited to %[1]d rows>",
  "reasoning": "<short rationale>"
}

RULES:
- Only generate safe, read-only SELECT statements. Never INSERT, UPDATE, DELETE, DROP, or any other modifying statement.
- Use only the provided schema. Do not guess or hallucinate table or column names. Available tables/columns:
%[2]s
- Prefer an explicit LIMIT %[1]d if no limit is present.
- If a table name matches a reserved word (e.g. Case, Order) wrap it in double quotes: "Case".
- Return JSON only; do not include explanations outside the JSON and do not wrap it in markdown code blocks.`

// BuildSystemPrompt renders the system prompt for a schema and row cap.
func BuildSystemPrompt(m *schema.Map, maxRows int) string {
	return fmt.Sprintf(systemPromptTemplate, maxRows, m.PromptListing())
}

// BuildUserPrompt renders the per-question prompt.
func BuildUserPrompt(question string) string {
	return fmt.Sprintf("User question: %s", question)
}
