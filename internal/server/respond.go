package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"lyrics-viewer/internal/song"
	"lyrics-viewer/internal/timeline"
	"lyrics-viewer/internal/translation"
)

// errorResponse 所有错误都以 {"message": ...} 返回
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, status, resp)
}

// statusOf 把领域错误映射为 HTTP 状态码
func statusOf(err error) int {
	switch {
	case errors.Is(err, song.ErrSongNotFound),
		errors.Is(err, song.ErrTranslationNotFound),
		errors.Is(err, song.ErrNoSyncedLyrics):
		return http.StatusNotFound
	case errors.Is(err, song.ErrInvalidSong),
		errors.Is(err, timeline.ErrInvalidTimestamp),
		errors.Is(err, timeline.ErrUnsorted),
		errors.Is(err, translation.ErrEmptyText):
		return http.StatusBadRequest
	case errors.Is(err, translation.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, song.ErrLyricsUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail 按错误类型选择状态码；5xx 记日志
func fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Int("status", status).Msg(message)
	}
	switch status {
	case http.StatusNotFound, http.StatusBadRequest:
		writeError(w, status, err.Error(), nil)
	default:
		writeError(w, status, message, err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	return dec.Decode(v)
}
