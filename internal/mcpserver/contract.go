package mcpserver

// LinkFormatContract describes the wiki-link syntax and the name
// canonicalization rules that LLM consumers need when reading or writing
// notes.
const LinkFormatContract = `# Ehwaz Link Format Contract

How notes reference each other, and how link names map to note ids.

## Wiki-links

` + "```" + `markdown
Plain link:    [[Target Name]]
Aliased link:  [[Target Name|display text]]
` + "```" + `

The text between ` + "`" + `[[` + "`" + ` and ` + "`" + `]]` + "`" + ` (before any ` + "`" + `|` + "`" + `) is the link name. It is
free-form: spacing, case, and punctuation do not have to match the target
note's filename.

## Canonical ids

Every note has a canonical id derived from its filename stem (the basename
with the last extension removed). Link names resolve to ids with the same
rules, applied in order:

1. Every maximal run of separator characters becomes a single ` + "`" + `-` + "`" + `.
   Separators are ASCII punctuation, Unicode whitespace, and the zero-width
   characters U+200B, U+2060, U+FEFF.
2. The result is lowercased.
3. Trailing ` + "`" + `-` + "`" + `, ` + "`" + `_` + "`" + `, and zero-width characters are stripped.

The mapping is deterministic and idempotent: canonicalizing an id again
returns the same id.

## Consequences

- ` + "`" + `[[My Note]]` + "`" + `, ` + "`" + `[[my-note]]` + "`" + `, ` + "`" + `[[My_Note!]]` + "`" + `, and ` + "`" + `[[my.note]]` + "`" + ` all resolve
  to the note with id ` + "`" + `my-note` + "`" + ` (for example the file ` + "`" + `My Note.md` + "`" + `).
- Two files whose stems canonicalize identically share one id; the most
  recently indexed file wins.
- Linking to a note that does not exist yet is allowed. The link stays
  invisible in queries until the target appears, at which point it shows up
  as a backlink automatically.
- Directory names play no part in identity: ` + "`" + `topics/Go.md` + "`" + ` and ` + "`" + `Go.md` + "`" + `
  would collide.

## Note content

` + "```" + `markdown
---
title: Optional human-readable title   # overrides the first # heading
---

Body in standard Markdown. Reference other notes with [[wikilinks]].
` + "```" + `

Front matter is optional. Without a ` + "`" + `title` + "`" + ` field the first level-1 heading
is used; without either, the filename stem stands in as the title.

## Example

` + "```" + `markdown
---
title: Weekly review
---

# Weekly review

Progress on [[Project Atlas]] is tracked in [[atlas-roadmap|the roadmap]].
Open questions go to [[Inbox]].
` + "```" + `
`
