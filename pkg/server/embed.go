package server

import _ "embed"

// promptEditorHTML is the prompt-file UI editor (spec.md §1 "peripheral"
// surface; §6 GET /prompt/ui), grounded on the teacher's
// //go:embed static/index.html pattern (pkg/server/http.go).
//
//go:embed static/prompt_editor.html
var promptEditorHTML []byte
