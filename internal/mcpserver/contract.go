package mcpserver

// NoteFormatContract describes the note frontmatter format and the review
// scoring rules that LLM consumers should follow when writing knowledge.
const NoteFormatContract = `# Ansuz Knowledge Contract

Every write to the knowledge base carries two scores and is gated by
configurable review thresholds.

## Review scoring

- ` + "`confidence`" + ` (0.0 to 1.0): how certain you are that the information is correct.
- ` + "`relevance`" + ` (0.0 to 1.0): how relevant the information is to the organization.
- A score strictly below its threshold defers the write: the tool responds with
  a ` + "`REVIEW_REQUIRED:`" + ` prefix and the write is NOT persisted.
- Score honestly. Never inflate scores to bypass review; resubmit only after
  explicit human approval.

## Note format

Notes are created through the ` + "`create_note`" + ` tool, which writes the
frontmatter for you:

` + "```" + `markdown
---
title: Human-readable title
created: "2026-08-27"
updated: "2026-08-27"
domain: engineering
category: runbook
tags:
    - deploys
    - ops
summary: One or two sentence summary.
confidence: 0.85
relevance: 0.8
reviewed: false
priority: medium
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. **Filenames are derived.** ` + "`create_note`" + ` names files ` + "`YYYYMMDD-slugified-title.md`" + `
   and resolves collisions with a numeric suffix. Never pick filenames yourself.
2. **Topics partition notes.** Pass a configured topic name; unknown topics
   fall back to the default topic.
3. **Tags** are comma-separated on input, lowercase at matching time.
4. **URLs are keyed by address.** Re-adding an indexed URL updates its entry
   in place.
5. **Instructions sections** are level-2 headings (` + "`## Section Name`" + `).
   Heading match is exact text. ` + "`append`" + ` keeps existing content,
   ` + "`replace`" + ` substitutes the whole section body.
6. **Check before writing.** Use ` + "`get_knowledge_status`" + `,
   ` + "`search_by_tags`" + `, or ` + "`search_knowledge`" + ` to avoid duplicates.
`
