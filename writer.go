package loginmanager

import (
	"net/http"
)

// interceptWriter delays the handler's first WriteHeader until the session
// cookie has been added, and swallows the body when the response is replaced.
type interceptWriter struct {
	http.ResponseWriter

	commit      func(status int) (replaced bool)
	wroteHeader bool
	discard     bool
}

func (w *interceptWriter) WriteHeader(code int) {
	if w.wroteHeader {
		return
	}

	// Informational responses do not end the header phase.
	if code >= 100 && code < 200 && code != http.StatusSwitchingProtocols {
		w.ResponseWriter.WriteHeader(code)
		return
	}

	w.wroteHeader = true
	w.discard = w.commit(code)
}

func (w *interceptWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}

	if w.discard {
		return len(b), nil
	}

	return w.ResponseWriter.Write(b)
}

func (w *interceptWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}

	if w.discard {
		return
	}

	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *interceptWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// finish commits a response the handler never wrote to.
func (w *interceptWriter) finish() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
}
