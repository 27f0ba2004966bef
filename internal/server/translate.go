package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"lyrics-viewer/internal/offline"
)

type translateSongRequest struct {
	TargetLanguage string `json:"targetLanguage"`
}

type translateTextRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
}

type translateTextResponse struct {
	TranslatedText string `json:"translatedText"`
}

// handleTranslateSong targetLanguage 缺省为默认语言；请求体可以为空
func (s *Server) handleTranslateSong(w http.ResponseWriter, r *http.Request) {
	var req translateSongRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request data", err)
		return
	}
	lang := strings.TrimSpace(req.TargetLanguage)
	if lang == "" {
		lang = s.deps.Translator.DefaultLanguage()
	}

	tr, err := s.deps.Translator.Translate(r.Context(), mux.Vars(r)["id"], lang)
	if err != nil {
		fail(w, r, "Failed to translate song", err)
		return
	}
	writeJSON(w, http.StatusOK, tr)
}

func (s *Server) handleTranslateText(w http.ResponseWriter, r *http.Request) {
	var req translateTextRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request data", err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "Text is required", nil)
		return
	}

	text, err := s.deps.Translator.TranslateText(r.Context(), req.Text, req.TargetLanguage)
	if err != nil {
		fail(w, r, "Failed to translate text", err)
		return
	}
	writeJSON(w, http.StatusOK, translateTextResponse{TranslatedText: text})
}

func (s *Server) handleOfflineTranslations(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Translator.Cache().All(r.Context())
	if err != nil {
		fail(w, r, "Failed to read offline translations", err)
		return
	}
	if entries == nil {
		entries = []offline.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleOfflineStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Translator.Cache().Stats(r.Context())
	if err != nil {
		fail(w, r, "Failed to read offline stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleClearOffline(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Translator.Cache().Clear(r.Context()); err != nil {
		fail(w, r, "Failed to clear offline translations", err)
		return
	}
	s.logger.Info().Msg("Offline translations cleared")
	w.WriteHeader(http.StatusNoContent)
}
