package mcpserver

// NoteFormatContract describes the Markdown accepted by create_note and
// produced by read_note.
const NoteFormatContract = `# Scriptor Note Format Contract

Notes are stored as structured rich-text documents. Tools exchange them as
Markdown with optional YAML frontmatter.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # OPTIONAL – falls back to the first "# " heading
tags:                               # OPTIONAL – YAML list or comma-separated string
  - tag-one
category: work                      # OPTIONAL – defaults to "general"
subject: Quarterly planning         # OPTIONAL
folder: projects                    # OPTIONAL – folder reference
starred: false                      # OPTIONAL
public: false                       # OPTIONAL
---

Body text in standard Markdown.
` + "```" + `

## Supported Markdown

1. Headings ` + "`#`" + ` to ` + "`#####`" + ` (deeper levels become level 5).
2. Paragraphs, block quotes, fenced code blocks, horizontal rules.
3. Bullet and ordered lists (one level; nesting is flattened).
4. **bold**, *italic*, ~~strikethrough~~, ` + "`code`" + ` and [links](https://example.com).
5. GFM tables.
6. Task list items keep their ` + "`[ ]`" + ` / ` + "`[x]`" + ` marker as text.
7. Inline ` + "`#tags`" + ` in the body are added to the note's tags.

## Images

Images are embedded in the note, never linked. Use the ` + "`insert_image`" + ` tool
with an http(s) URL or a data: URI. Accepted types: png, jpeg, gif, webp, svg.
Remote images referenced from Markdown keep only their alt text.

## Formatting

Use ` + "`format_note`" + ` to apply an editing command (see the
` + "`scriptor://commands`" + ` resource) to the first occurrence of a text match.
Color commands take a CSS color argument, fontSize takes 1-7, table takes
"ROWSxCOLS", link takes a URL.

## Example

` + "```" + `markdown
---
title: Weekly standup 2025-01-20
tags: [meeting-notes, project-x]
category: work
---

# Weekly standup 2025-01-20

Attendees: Alice, Bob.

## Action items

- Alice to review the **design doc**
- Bob to update the roadmap
` + "```" + `
`
