package mcpserver

// FormatContract describes the Markdown quire parses and how editor input
// events change it. LLM clients read it before creating or editing
// documents.
const FormatContract = `# Quire Document Format

Documents are UTF-8 Markdown files ending in ` + "`.md`" + `, addressed by
forward-slash paths relative to the vault root.

## Frontmatter

An optional YAML block fenced by ` + "`---`" + ` lines at the very top of the
file. Recognized keys:

- ` + "`title`" + `: display title. Without it the first level-1 heading is used.
- ` + "`tags`" + `: a YAML list or a comma-separated string.

Inline ` + "`#tags`" + ` in the body are collected as well.

## Blocks

- ATX headings ` + "`#`" + ` to ` + "`######`" + `
- paragraphs separated by blank lines
- block quotes (` + "`> `" + `), nestable
- bullet lists (` + "`-`, `*`, `+`" + `) and ordered lists (` + "`1.`, `1)`" + `)
- task items (` + "`- [ ]`, `- [x]`" + `)
- fenced code blocks with an optional language, and indented code blocks
- thematic breaks (` + "`---`, `***`" + `)
- pipe tables with a divider row
- footnote definitions (` + "`[^id]: text`" + `) and link reference definitions

## Inlines

- emphasis ` + "`*x*`" + `, strong ` + "`**x**`" + `, strikethrough ` + "`~~x~~`" + `
- code spans, backslash escapes, HTML entities, raw inline HTML
- links ` + "`[text](url \"title\")`" + `, reference links ` + "`[text][label]`" + `,
  images ` + "`![alt](src)`" + `, autolinks ` + "`<https://...>`" + `
- wiki links ` + "`[[target]]`" + ` and ` + "`[[target|alias]]`" + `
- footnote references ` + "`[^id]`" + ` and emoji shortcodes ` + "`:smile:`" + `
- hard breaks (two trailing spaces or a backslash before the newline)

## Editing

The edit_document tool applies one input event at a byte offset:

- ` + "`insertText`" + ` inserts text at the caret.
- ` + "`insertParagraph`" + ` splits the block. Inside a list the new line gets a
  bullet (ordered lists continue numbering); inside a quote it keeps the
  ` + "`> `" + ` prefix; inside code it inserts a newline. On an empty list item
  it ends the list instead.
- ` + "`insertLineBreak`" + ` inserts a hard break, or a newline inside code.
- ` + "`deleteContentBackward`" + ` and ` + "`deleteContentForward`" + ` delete one
  character; at a block boundary they join the blocks. Deleting at the
  start of the document or the end of the last block does nothing.

After every edit the text is re-parsed, so the tree always matches what a
fresh parse of the text would produce.

## Example

` + "```" + `markdown
---
title: Release checklist
tags: [release, ops]
---

# Release checklist

- [x] Tag the build
- [ ] Update [[changelog]]

> Ship it when **all** boxes are ticked.
` + "```" + `
`
