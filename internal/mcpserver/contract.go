package mcpserver

// ReferenceFormatContract describes how content documents reference each
// other, for LLM consumers reading or authoring the content tree.
const ReferenceFormatContract = `# Content Reference Format

Documents in the content tree are JSON (or YAML) files. A field that the
schema declares as a reference holds either the value inline or a pointer
to another file.

## Pointer literal

A pointer is an object with exactly one key, ` + "`" + `$ref` + "`" + `:

` + "```" + `json
{"meta": {"$ref": "meta.json"}}
` + "```" + `

Any other shape in the same field is the value itself:

` + "```" + `json
{"meta": {"title": "H2 Molecule", "authors": [{"name": "A. User"}]}}
` + "```" + `

## Paths

1. Relative pointers resolve against the directory of the document that
   contains them: ` + "`" + `features/hamiltonian.md` + "`" + ` in
   ` + "`" + `qchem/h2/dataset.json` + "`" + ` is ` + "`" + `qchem/h2/features/hamiltonian.md` + "`" + `.
2. A leading ` + "`" + `/` + "`" + ` makes a pointer relative to the tree root:
   ` + "`" + `/classes/qchem.json` + "`" + `.
3. Pointers may not climb above the tree root, contain backslashes or use URL schemes.
4. Non-JSON targets (` + "`" + `.md` + "`" + `, ` + "`" + `.bib` + "`" + `, ` + "`" + `.txt` + "`" + `) are read as text.
5. References may not form cycles.

## Assets

Image fields (` + "`" + `heroImage` + "`" + `, ` + "`" + `thumbnail` + "`" + `) are plain strings. An
` + "`" + `http(s)://` + "`" + ` URL is used as is; anything else is a path resolved like a
pointer and published with the build.

## Tools

- ` + "`" + `read_document` + "`" + ` with ` + "`" + `mode=deep` + "`" + ` and ` + "`" + `format=inline` + "`" + ` returns a document
  with every reference replaced by its target.
- ` + "`" + `get_backlinks` + "`" + ` lists the documents that point at a path.
`
