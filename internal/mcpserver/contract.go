package mcpserver

// ExportFormatContract describes the portable canvas export file format
// that LLM consumers receive from export_canvas and may hand back for import.
const ExportFormatContract = `# Mural Canvas Export Format

Every canvas export produced by Mural follows this structure.

## Structure

` + "```" + `json
{
  "version": "1.0.0",
  "exportedAt": "2025-01-20T12:00:00Z",
  "nodes": [
    {
      "id": "4f6c...",
      "position": { "x": 120, "y": 80 },
      "width": 320,
      "height": 220,
      "text": "Note body",
      "z": 3
    }
  ],
  "edges": [
    { "id": "9a1b...", "source": "4f6c...", "target": "77de..." }
  ]
}
` + "```" + `

## Rules

1. **` + "`" + `nodes` + "`" + ` and ` + "`" + `edges` + "`" + ` are mandatory JSON arrays.** A file missing
   either, or carrying a non-array value, is rejected on import.
2. **` + "`" + `version` + "`" + ` is informational.** It is stamped on export but not checked
   on import, so newer files load on older servers.
3. **Node dimensions are normalized on load.** Width is clamped to [200, 520],
   height to [160, 460]; missing or invalid dimensions fall back to 320x220.
4. **Text is capped at 2000 characters.** Longer text is truncated on load.
5. **` + "`" + `z` + "`" + ` orders stacking.** Missing or non-positive z values are assigned
   from the node's position in the array.
6. **Edges must reference node ids.** Unknown fields anywhere are ignored.
7. **Transient state never appears.** Exports carry no drag flags or merge
   candidates.
`
