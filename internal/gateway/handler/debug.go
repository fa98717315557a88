package handler

import (
	"net/http"

	"codelab/internal/declaration"
)

// DeclarationLister exposes the synchronizer registry.
type DeclarationLister interface {
	Entries() []declaration.Entry
}

type DebugHandler struct {
	declarations DeclarationLister
	gate         *declaration.Gate
}

func NewDebugHandler(declarations DeclarationLister, gate *declaration.Gate) *DebugHandler {
	return &DebugHandler{declarations: declarations, gate: gate}
}

func (h *DebugHandler) HandleDeclarations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	entries := h.declarations.Entries()
	out := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		out = append(out, map[string]any{
			"fileId":   e.FileID,
			"filename": e.Filename,
			"basename": e.Basename,
			"uris":     e.URIs,
		})
	}
	writeJSON(w, map[string]any{
		"ready":        h.gate != nil && h.gate.Ready(),
		"declarations": out,
	})
}

func (h *DebugHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"ok": true})
}
