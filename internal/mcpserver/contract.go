package mcpserver

// RecordFormat describes a stored FAQ record for LLM consumers.
const RecordFormat = `# FAQ Record Format

The collection is a single JSON array. Each element:

` + "```" + `json
{
  "id": 3,
  "question": "How do I reset my password?",
  "answer": "Use the link on the sign-in page.",
  "tags": ["account", "security"]
}
` + "```" + `

## Rules

1. **id** is a positive integer assigned by the store: one more than the
   highest id currently stored. Do not pass one to ` + "`" + `create_faq` + "`" + `.
2. **question** and **answer** are required and must not be blank.
3. **tags** is optional. Every tag must be non-blank. Order is preserved.
4. Records keep insertion order. Deleting a record does not renumber others.
`
