package mcpserver

// NamingConvention describes how document filenames encode their position
// in the hierarchy. Exposed to LLM consumers as a resource so they never
// invent their own numbering.
const NamingConvention = `# Eihwaz Filename Convention

Every document in the vault lives in ONE flat directory. The filename alone
encodes the document's position in the hierarchy.

## Format

` + "```" + `
<n>(.<n>)*. <Title>.md
` + "```" + `

- The leading number sequence is the **level path**: ` + "`" + `2.3.1` + "`" + ` means the first
  child of the third child of the second top-level group.
- Each segment is a positive integer with no leading zeros (1, 2, ... — never
  0 or 01).
- The level path ends with a dot and a space, then the title, then ` + "`" + `.md` + "`" + `.

## Examples

` + "```" + `
1. Introduction.md
1.1. Motivation.md
1.2. Prior Work.md
2. Design.md
2.3.1. Error Handling.md
` + "```" + `

## Rules

1. **Do not rename files to move them.** Use the ` + "`" + `move_document` + "`" + ` tool; it
   renumbers affected siblings and the whole subtree consistently.
2. **Do not pick numbers yourself when creating.** Use ` + "`" + `create_subnote` + "`" + `; it
   assigns the next free sibling number.
3. **Siblings are densely numbered** from 1 upward. Gaps survive on disk but
   new documents always extend past the highest existing number.
4. **Files that do not match the format are foreign.** They are ignored by
   the hierarchy and never touched by move or delete operations.
5. **Frontmatter ` + "`" + `title` + "`" + ` overrides the filename title** for display; the
   filename title is the fallback.

## Document content

` + "```" + `markdown
---
title: Human-readable title     # optional, overrides the filename title
---

# Heading

Body text in standard Markdown.
` + "```" + `
`
