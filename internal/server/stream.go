package server

import (
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/ayusman/objecthunter/internal/surface"
)

const streamBoundary = "frame"

// StreamHandler serves the rendered game frames as an MJPEG stream.
type StreamHandler struct {
	surface *surface.Surface
}

func NewStreamHandler(s *surface.Surface) *StreamHandler {
	return &StreamHandler{surface: s}
}

// ServeHTTP writes one multipart part per published frame until the client goes away. A
// slow client skips frames rather than queueing them.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	mw := multipart.NewWriter(w)
	if err := mw.SetBoundary(streamBoundary); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	flusher, _ := w.(http.Flusher)

	var seq uint64
	for {
		frame, next, err := h.surface.WaitFrame(r.Context(), seq)
		if err != nil {
			return
		}
		seq = next

		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":   {"image/jpeg"},
			"Content-Length": {strconv.Itoa(len(frame))},
		})
		if err != nil {
			return
		}
		if _, err := part.Write(frame); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
