package mcpserver

// SyntaxGuideURI is the resource URI of SyntaxGuide.
const SyntaxGuideURI = "docgen://syntax"

// SyntaxGuide describes the markdown extensions understood by the compiler
// and the link tooling.
const SyntaxGuide = `# docgen Markdown Syntax

Documents are CommonMark with GitHub extensions (tables, task lists,
strikethrough, autolinks) and definition lists, plus the constructs below.

## Frontmatter

A leading YAML block fenced by ` + "`---`" + ` or a TOML block fenced by ` + "`+++`" + `.

` + "```" + `markdown
---
title: Getting Started          # used as link text when resolving uuid tokens
uuid: 3f1c2a9e-6b1d-4c55-9f0e-2d8a7b4c1e90
tags: [intro]
---
` + "```" + `

## UUID references

- ` + "`[[uuid:<36 hex or hyphen>]]`" + ` refers to the file that declares that UUID.
- Markdown files declare a UUID in frontmatter. TypeScript files declare one in a
  JSDoc comment (` + "`@uuid <id>`" + ` or ` + "`uuid: <id>`" + `). Python functions declare one
  in their docstring (` + "`uuid: <id>`" + `).
- The resolver rewrites each token to ` + "`[Title](relative/path.md)`" + `, or to
  ` + "`[[MISSING UUID: <id>]]`" + ` when nothing declares it. Rewritten files are
  left alone on later runs.

## Wiki references

- ` + "`[[Display Text]]`" + ` renders a link with class ` + "`wikilink`" + `.
- ` + "`[[Target|Label]]`" + ` links to Target and shows Label.

## Directives

- Text: ` + "`:name[label]{attrs}`" + ` inside a paragraph.
- Leaf: ` + "`::name[label]{attrs}`" + ` on its own line.
- Container: ` + "`:::name[label]{attrs}`" + ` ... ` + "`:::`" + ` around block content.
- Attributes: ` + "`#id`" + `, ` + "`.class`" + ` (repeatable), ` + "`key=\"value\"`" + `, bare ` + "`key`" + `.

Built-in directives:

| Name | Form | Output |
|---|---|---|
| ` + "`note`" + ` | container | alert box (` + "`role=\"alert\"`" + `) |
| ` + "`rdfterm`" + ` | text | ` + "`:rdfterm[prefix:localname]`" + ` rendered as an emphasised term |
| ` + "`bpmn`" + ` | leaf or container | inline SVG diagram from ` + "`src`" + ` (optional ` + "`width`" + `, ` + "`height`" + `, ` + "`zoom`" + `, ` + "`class`" + `) |
| ` + "`openapi`" + ` | leaf or container | embedded viewer for the ` + "`src`" + ` attribute |

Any other directive becomes a ` + "`span`" + ` (text) or ` + "`div`" + ` (leaf, container)
carrying its attributes.

## Example

` + "```" + `markdown
---
title: Workflow
uuid: 9b2e4d7a-1c3f-4e8b-a6d5-0f7c2b1e3a94
---

# Workflow

:::note
Read [[uuid:3f1c2a9e-6b1d-4c55-9f0e-2d8a7b4c1e90]] first.
:::

::bpmn{src="diagrams/order.bpmn" width="600"}

The :rdfterm[sdl:Instrument] class is defined in [[Ontology]].
` + "```" + `
`
