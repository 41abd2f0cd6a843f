package handlers

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// HandleExtract accepts either a JSON body {content, filename, url} or a
// multipart upload in the "file" field (.txt, .md or .html).
func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	var request struct {
		Content  string `json:"content"`
		Filename string `json:"filename"`
		URL      string `json:"url"`
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		content, filename, ok := h.readUpload(w, r)
		if !ok {
			return
		}
		request.Content, request.Filename = content, filename
	} else if err := readJSON(w, r, &request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}

	if request.Content == "" && request.URL == "" {
		h.writeError(w, "content, file or url is required", http.StatusBadRequest)
		return
	}

	info, err := h.wizard.Extract(r.Context(), request.Content, request.Filename, request.URL)
	if err != nil {
		h.writeErr(w, err)
		return
	}
	h.jsonResponse(w, http.StatusOK, info)
}

var uploadExtensions = map[string]bool{".txt": true, ".md": true, ".html": true, ".htm": true}

func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return "", "", false
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !uploadExtensions[ext] {
		h.writeError(w, "Unsupported file type. Must be .txt, .md or .html", http.StatusBadRequest)
		return "", "", false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusBadRequest)
		return "", "", false
	}
	return string(data), header.Filename, true
}
